// Package genai is a minimal REST client for the Gemini generative
// language API: content generation with tool calling and thought traces,
// explicit context caches, and short-turn audio analysis.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com"

// Client talks to the generative language API over HTTP.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// New builds a Client. endpoint may be empty to use the public API host.
func New(apiKey, endpoint string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("genai: api key is empty")
	}
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" {
		base = defaultEndpoint
	}
	return &Client{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: base,
		http:     &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// GenerateContent runs one generation call against the given model.
func (c *Client) GenerateContent(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error) {
	if model == "" {
		return nil, errors.New("genai: model is empty")
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, model)

	var out GenerateResponse
	if err := c.post(ctx, url, req, &out); err != nil {
		return nil, err
	}
	if len(out.Candidates) == 0 {
		return nil, errors.New("genai: empty response from model")
	}
	return &out, nil
}

type cachedContentRequest struct {
	Model             string    `json:"model"`
	Contents          []Content `json:"contents"`
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
	TTL               string    `json:"ttl,omitempty"`
}

type cachedContentResponse struct {
	Name          string `json:"name"`
	ExpireTime    string `json:"expireTime"`
	UsageMetadata *struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// CreateCachedContent uploads contents into a provider-side context cache
// for the given model and returns its handle.
func (c *Client) CreateCachedContent(ctx context.Context, model string, contents []Content, systemInstruction *Content, ttl time.Duration) (*CachedContent, error) {
	if model == "" {
		return nil, errors.New("genai: model is empty")
	}
	if len(contents) == 0 {
		return nil, errors.New("genai: no contents to cache")
	}

	req := cachedContentRequest{
		Model:             "models/" + model,
		Contents:          contents,
		SystemInstruction: systemInstruction,
	}
	if ttl > 0 {
		req.TTL = fmt.Sprintf("%ds", int(ttl.Seconds()))
	}

	url := c.endpoint + "/v1beta/cachedContents"
	var out cachedContentResponse
	if err := c.post(ctx, url, req, &out); err != nil {
		return nil, err
	}
	if out.Name == "" {
		return nil, errors.New("genai: cache create returned no name")
	}

	cache := &CachedContent{Name: out.Name, ExpireTime: out.ExpireTime}
	if out.UsageMetadata != nil {
		cache.TokenCount = out.UsageMetadata.TotalTokenCount
	}
	return cache, nil
}

// DeleteCachedContent removes a provider-side cache by its full resource
// name ("cachedContents/...").
func (c *Client) DeleteCachedContent(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("genai: cache name is empty")
	}
	url := c.endpoint + "/v1beta/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}
	return nil
}

// AnalyzeAudio sends one audio segment to the live model with a system
// instruction and returns the model's textual read of it.
func (c *Client) AnalyzeAudio(ctx context.Context, systemInstruction string, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("genai: empty audio payload")
	}
	if mimeType == "" {
		mimeType = "audio/pcm"
	}

	req := &GenerateRequest{
		Contents: []Content{{
			Role: "user",
			Parts: []Part{{
				InlineData: &Blob{
					MIMEType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				},
			}},
		}},
	}
	if strings.TrimSpace(systemInstruction) != "" {
		req.SystemInstruction = &Content{Parts: []Part{TextPart(systemInstruction)}}
	}

	resp, err := c.GenerateContent(ctx, ModelLive, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("genai: empty response from model")
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp.StatusCode, respBody)
	}
	return json.Unmarshal(respBody, out)
}

func apiError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		return fmt.Errorf("genai: %s (status %d)", payload.Error.Message, status)
	}
	return fmt.Errorf("genai: request failed with status %d: %s", status, strings.TrimSpace(string(body)))
}
