package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CJCR07/veridicus/internal/config"
	"github.com/CJCR07/veridicus/internal/models"
	"github.com/CJCR07/veridicus/internal/pkg/genai"
)

// stubModel scripts GenerateContent responses for loop tests.
type stubModel struct {
	calls   int
	respond func(call int, req *genai.GenerateRequest) *genai.GenerateResponse
}

func (s *stubModel) GenerateContent(_ context.Context, _ string, req *genai.GenerateRequest) (*genai.GenerateResponse, error) {
	s.calls++
	return s.respond(s.calls, req), nil
}

func (s *stubModel) CreateCachedContent(context.Context, string, []genai.Content, *genai.Content, time.Duration) (*genai.CachedContent, error) {
	return &genai.CachedContent{Name: "cachedContents/test"}, nil
}

func cachedCase() *models.CaseModel {
	cacheID := "cachedContents/abc"
	expires := time.Now().Add(time.Hour)
	m := &models.CaseModel{Name: "test case", UserID: "u1"}
	m.ID = "11111111-2222-4333-8444-555555555555"
	m.CacheID = &cacheID
	m.CacheExpiresAt = &expires
	return m
}

func textResponse(text string) *genai.GenerateResponse {
	return &genai.GenerateResponse{
		Candidates: []genai.Candidate{{
			Content: genai.Content{Role: "model", Parts: []genai.Part{{Text: text}}},
		}},
	}
}

func toolResponse(name string) *genai.GenerateResponse {
	return &genai.GenerateResponse{
		Candidates: []genai.Candidate{{
			Content: genai.Content{Role: "model", Parts: []genai.Part{{
				FunctionCall: &genai.FunctionCall{Name: name, Args: json.RawMessage(`{}`)},
			}}},
		}},
	}
}

func TestCachedLoopTerminatesWithoutToolCalls(t *testing.T) {
	stub := &stubModel{
		respond: func(int, *genai.GenerateRequest) *genai.GenerateResponse {
			return textResponse("final answer")
		},
	}
	svc := &Service{ai: stub, log: zap.NewNop()}

	resp, _, _, err := svc.runCachedLoop(context.Background(), cachedCase(), "what happened?")
	require.NoError(t, err)
	require.Equal(t, 1, stub.calls)
	require.Equal(t, "final answer", resp.Text())
}

func TestCachedLoopCapsAtMaxTurns(t *testing.T) {
	stub := &stubModel{
		respond: func(int, *genai.GenerateRequest) *genai.GenerateResponse {
			// An unknown tool keeps the loop spinning without needing a
			// database behind the executor.
			return toolResponse("no_such_tool")
		},
	}
	svc := &Service{ai: stub, log: zap.NewNop()}

	resp, _, _, err := svc.runCachedLoop(context.Background(), cachedCase(), "what happened?")
	require.NoError(t, err)
	require.Equal(t, config.MaxToolTurns, stub.calls)
	require.NotNil(t, resp)
}

func TestCachedLoopFeedsToolResultsBack(t *testing.T) {
	stub := &stubModel{
		respond: func(call int, req *genai.GenerateRequest) *genai.GenerateResponse {
			if call == 1 {
				require.Len(t, req.Contents, 1)
				return toolResponse("no_such_tool")
			}
			// Second call must carry the model turn plus the tool result.
			require.Len(t, req.Contents, 3)
			last := req.Contents[len(req.Contents)-1]
			require.NotNil(t, last.Parts[0].FunctionResponse)
			require.Equal(t, "no_such_tool", last.Parts[0].FunctionResponse.Name)
			return textResponse("done")
		},
	}
	svc := &Service{ai: stub, log: zap.NewNop()}

	resp, _, _, err := svc.runCachedLoop(context.Background(), cachedCase(), "query")
	require.NoError(t, err)
	require.Equal(t, 2, stub.calls)
	require.Equal(t, "done", resp.Text())
}

func TestCachedRequestShape(t *testing.T) {
	var seen *genai.GenerateRequest
	stub := &stubModel{
		respond: func(_ int, req *genai.GenerateRequest) *genai.GenerateResponse {
			seen = req
			return textResponse("ok")
		},
	}
	svc := &Service{ai: stub, log: zap.NewNop()}

	_, _, _, err := svc.runCachedLoop(context.Background(), cachedCase(), "query")
	require.NoError(t, err)
	require.Equal(t, "cachedContents/abc", seen.CachedContent)
	require.NotEmpty(t, seen.Tools)
	require.Equal(t, "AUTO", seen.ToolConfig.FunctionCallingConfig.Mode)
	require.NotNil(t, seen.GenerationConfig.Temperature)
	require.InDelta(t, 0.3, *seen.GenerationConfig.Temperature, 1e-9)
}

func TestQueryResultSpreadsAnalysisFields(t *testing.T) {
	row := &models.AnalysisModel{
		CaseID: "11111111-2222-4333-8444-555555555555",
		Query:  "who was at the scene?",
	}
	row.ID = "99999999-8888-4777-8666-555555555555"

	data, err := json.Marshal(queryResult{
		Analysis:       row,
		Contradictions: []models.ContradictionModel{},
	})
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	require.Equal(t, row.ID, flat["id"])
	require.Equal(t, "who was at the scene?", flat["query"])
	require.Contains(t, flat, "contradictions")
	require.NotContains(t, flat, "analysis")
}

func TestThoughtsAreCollected(t *testing.T) {
	stub := &stubModel{
		respond: func(int, *genai.GenerateRequest) *genai.GenerateResponse {
			return &genai.GenerateResponse{
				Candidates: []genai.Candidate{{
					Content: genai.Content{Role: "model", Parts: []genai.Part{
						{Text: "considering the timeline", Thought: true},
						{Text: "visible answer"},
					}},
				}},
			}
		},
	}
	svc := &Service{ai: stub, log: zap.NewNop()}

	resp, thoughts, _, err := svc.runCachedLoop(context.Background(), cachedCase(), "query")
	require.NoError(t, err)
	require.Equal(t, []string{"considering the timeline"}, thoughts)
	require.Equal(t, "visible answer", resp.Text())
}
