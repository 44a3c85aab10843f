package genai

import "encoding/json"

// Model identifiers for the generative API.
const (
	ModelPro   = "gemini-3-pro"        // deep reasoning
	ModelFlash = "gemini-3-flash"      // fast analysis
	ModelLive  = "gemini-live-3-flash" // real-time audio
)

// Thinking levels supported by the reasoning models.
const (
	ThinkingMinimal = "minimal"
	ThinkingLow     = "low"
	ThinkingMedium  = "medium"
	ThinkingHigh    = "high"
)

// Content is one conversation turn.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" | "model"
	Parts []Part `json:"parts"`
}

// Part is a single piece of a turn: text (possibly a thought trace),
// inline binary data, a function call requested by the model, or a
// function response fed back to it.
type Part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Blob carries base64-encoded binary data with its MIME type.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse carries a tool's result back into the conversation.
type FunctionResponse struct {
	Name     string      `json:"name"`
	Response interface{} `json:"response"`
}

// TextPart builds a plain text part.
func TextPart(text string) Part { return Part{Text: text} }

// UserText builds a single-part user turn.
func UserText(text string) Content {
	return Content{Role: "user", Parts: []Part{TextPart(text)}}
}

// FunctionDeclaration describes one callable tool to the model.
type FunctionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// Tool groups function declarations.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// ToolConfig controls the function-calling mode.
type ToolConfig struct {
	FunctionCallingConfig *FunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type FunctionCallingConfig struct {
	Mode string `json:"mode"` // "AUTO" | "ANY" | "NONE"
}

// ThinkingConfig selects the model's reasoning effort and whether thought
// parts are returned.
type ThinkingConfig struct {
	ThinkingLevel   string `json:"thinkingLevel,omitempty"`
	IncludeThoughts bool   `json:"includeThoughts,omitempty"`
}

// GenerationConfig tunes a generation call.
type GenerationConfig struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// GenerateRequest is the wire request for a generateContent call.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	ToolConfig        *ToolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	CachedContent     string            `json:"cachedContent,omitempty"`
}

// UsageMetadata reports token accounting for a call.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// GenerateResponse is the wire response of a generateContent call.
type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Text concatenates all visible (non-thought) text parts.
func (r *GenerateResponse) Text() string {
	var out string
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Thought || part.Text == "" {
				continue
			}
			out += part.Text
		}
	}
	return out
}

// Thoughts collects the reasoning-trace parts.
func (r *GenerateResponse) Thoughts() []string {
	var out []string
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Thought && part.Text != "" {
				out = append(out, part.Text)
			}
		}
	}
	return out
}

// FunctionCalls collects pending tool invocations from the first candidate.
func (r *GenerateResponse) FunctionCalls() []FunctionCall {
	if len(r.Candidates) == 0 {
		return nil
	}
	var calls []FunctionCall
	for _, part := range r.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}
	return calls
}

// ModelTurn returns the first candidate's content with the model role set,
// ready to append to a running conversation.
func (r *GenerateResponse) ModelTurn() Content {
	if len(r.Candidates) == 0 {
		return Content{Role: "model"}
	}
	turn := r.Candidates[0].Content
	if turn.Role == "" {
		turn.Role = "model"
	}
	return turn
}

// Usage returns token usage, zero-valued when the API omitted it.
func (r *GenerateResponse) Usage() UsageMetadata {
	if r.UsageMetadata == nil {
		return UsageMetadata{}
	}
	return *r.UsageMetadata
}

// CachedContent describes a provider-side context cache.
type CachedContent struct {
	Name       string `json:"name"`
	ExpireTime string `json:"expireTime"`
	TokenCount int    `json:"-"`
}
