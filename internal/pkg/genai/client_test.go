package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New("", "")
	require.Error(t, err)

	_, err = New("   ", "")
	require.Error(t, err)

	c, err := New("key", "")
	require.NoError(t, err)
	require.Equal(t, defaultEndpoint, c.endpoint)

	c, err = New("key", "http://localhost:9999/")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9999", c.endpoint)
}

func TestGenerateContentParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/"+ModelPro+":generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"role": "model",
					"parts": []map[string]interface{}{
						{"text": "hidden reasoning", "thought": true},
						{"text": "the answer"},
						{"functionCall": map[string]interface{}{
							"name": "search_evidence",
							"args": map[string]interface{}{"query": "knife"},
						}},
					},
				},
			}},
			"usageMetadata": map[string]interface{}{
				"promptTokenCount":     12,
				"candidatesTokenCount": 7,
				"totalTokenCount":      19,
			},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", srv.URL)
	require.NoError(t, err)

	resp, err := c.GenerateContent(context.Background(), ModelPro, &GenerateRequest{
		Contents: []Content{UserText("hello")},
	})
	require.NoError(t, err)

	require.Equal(t, "the answer", resp.Text())
	require.Equal(t, []string{"hidden reasoning"}, resp.Thoughts())

	calls := resp.FunctionCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "search_evidence", calls[0].Name)

	usage := resp.Usage()
	require.Equal(t, 12, usage.PromptTokenCount)
	require.Equal(t, 19, usage.TotalTokenCount)
}

func TestGenerateContentEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	c, err := New("test-key", srv.URL)
	require.NoError(t, err)

	_, err = c.GenerateContent(context.Background(), ModelFlash, &GenerateRequest{})
	require.ErrorContains(t, err, "empty response")
}

func TestGenerateContentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := New("test-key", srv.URL)
	require.NoError(t, err)

	_, err = c.GenerateContent(context.Background(), ModelPro, &GenerateRequest{})
	require.ErrorContains(t, err, "quota exceeded")
	require.ErrorContains(t, err, "429")
}

func TestCreateCachedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/cachedContents", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "models/"+ModelPro, req["model"])
		require.Equal(t, "3600s", req["ttl"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"name":          "cachedContents/abc123",
			"expireTime":    "2026-01-02T15:04:05Z",
			"usageMetadata": map[string]interface{}{"totalTokenCount": 4096},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", srv.URL)
	require.NoError(t, err)

	cache, err := c.CreateCachedContent(context.Background(), ModelPro,
		[]Content{UserText("evidence body")}, nil, time.Hour)
	require.NoError(t, err)
	require.Equal(t, "cachedContents/abc123", cache.Name)
	require.Equal(t, "2026-01-02T15:04:05Z", cache.ExpireTime)
	require.Equal(t, 4096, cache.TokenCount)
}

func TestCreateCachedContentRejectsEmpty(t *testing.T) {
	c, err := New("test-key", "http://localhost:1")
	require.NoError(t, err)

	_, err = c.CreateCachedContent(context.Background(), ModelPro, nil, nil, time.Hour)
	require.ErrorContains(t, err, "no contents")
}

func TestDeleteCachedContent(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New("test-key", srv.URL)
	require.NoError(t, err)

	require.NoError(t, c.DeleteCachedContent(context.Background(), "cachedContents/abc123"))
	require.Equal(t, "/v1beta/cachedContents/abc123", deleted)
}

func TestAnalyzeAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/"+ModelLive+":generateContent", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Contents[0].Parts[0].InlineData)
		require.Equal(t, "audio/pcm", req.Contents[0].Parts[0].InlineData.MIMEType)
		require.NotNil(t, req.SystemInstruction)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]interface{}{{"text": "  calm and measured  "}},
				},
			}},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", srv.URL)
	require.NoError(t, err)

	text, err := c.AnalyzeAudio(context.Background(), "read the room", []byte{0x01, 0x02}, "")
	require.NoError(t, err)
	require.Equal(t, "calm and measured", text)
}
