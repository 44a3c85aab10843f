// Package vibe is the live audio session handler ("Vibe Forensics"):
// a per-WebSocket state machine that takes an auth handshake, buffers
// rate-limited audio chunks, and periodically forwards them to the live
// model for affect analysis, with a canned fallback mode when the model
// is unavailable.
package vibe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/CJCR07/veridicus/internal/config"
	"github.com/CJCR07/veridicus/internal/middleware"
	"github.com/CJCR07/veridicus/internal/pkg/genai"
	"github.com/CJCR07/veridicus/internal/pkg/jwt"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

// Close codes for the auth handshake.
const (
	CloseAuthFailure      = 4001
	CloseCaseAccessDenied = 4003
)

// AudioAnalyzer is the slice of the model client the session needs.
// *genai.Client satisfies it.
type AudioAnalyzer interface {
	AnalyzeAudio(ctx context.Context, systemInstruction string, audio []byte, mimeType string) (string, error)
}

const liveInstruction = `You are analyzing live investigative interview audio. For each segment, respond with a single JSON object {"text": "observation about tone and affect", "confidence": 0.0, "indicator": "calm|stress|hesitation|engagement|neutral"} and nothing else.`

type clientMessage struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	CaseID string `json:"caseId,omitempty"`
	Audio  string `json:"audio,omitempty"`
}

type affectEvent struct {
	Type       string  `json:"type"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Indicator  string  `json:"indicator,omitempty"`
	Source     string  `json:"source,omitempty"`
	Message    string  `json:"message,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

type Handler struct {
	verifier *jwt.Verifier
	ai       AudioAnalyzer
	ownsCase func(caseID, userID string) (bool, error)
	log      *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(verifier *jwt.Verifier, ai AudioAnalyzer, ownsCase func(caseID, userID string) (bool, error), log *zap.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		ai:       ai,
		ownsCase: ownsCase,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Auth happens in-protocol, not at upgrade time.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes mounts the WebSocket endpoint. Authentication is part of
// the in-protocol handshake, so the route itself is public.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws/vibe", h.serve)
}

func (h *Handler) serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		handler: h,
		conn:    conn,
		limiter: newSlidingWindow(config.RateLimitWindow, config.MaxMessagesPerWindow),
		buffer:  newAudioBuffer(config.MaxAudioBufferChunks),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		done:    make(chan struct{}),
	}
	s.run()
}

// session is the per-connection state machine:
// unauthenticated -> authenticated -> closed.
type session struct {
	handler *Handler
	conn    *websocket.Conn

	writeMu sync.Mutex

	// authenticated and live are read by the drain goroutine.
	authenticated atomic.Bool
	live          atomic.Bool
	userID        string
	caseID        string

	limiter *slidingWindow

	bufMu  sync.Mutex
	buffer *audioBuffer

	rng  *rand.Rand
	done chan struct{}
}

func (s *session) run() {
	defer s.close()

	go s.drainLoop()
	go s.pingLoop()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.send(affectEvent{Type: "error", Message: "invalid message"})
			continue
		}

		if !s.authenticated.Load() {
			if msg.Type == "auth" {
				if !s.handleAuth(&msg) {
					return
				}
				continue
			}
			s.send(affectEvent{Type: "auth_required"})
			continue
		}

		switch msg.Type {
		case "audio":
			s.handleAudio(&msg)
		case "ping":
			s.send(affectEvent{Type: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})
		default:
			s.send(affectEvent{Type: "error", Message: "unknown message type"})
		}
	}
}

// handleAuth verifies the token and optional case access. Returns false
// when the socket was closed.
func (s *session) handleAuth(msg *clientMessage) bool {
	claims, err := middleware.ValidateToken(s.handler.verifier, msg.Token)
	if err != nil {
		s.closeWith(CloseAuthFailure, "authentication failed")
		return false
	}
	userID := claims.UserID()

	if msg.CaseID != "" {
		if !validate.UUID(msg.CaseID) {
			s.closeWith(CloseCaseAccessDenied, "case access denied")
			return false
		}
		owns, err := s.handler.ownsCase(msg.CaseID, userID)
		if err != nil || !owns {
			s.closeWith(CloseCaseAccessDenied, "case access denied")
			return false
		}
		s.caseID = msg.CaseID
	}

	s.userID = userID
	s.authenticated.Store(true)

	// A missing model client means demo/fallback mode; the connection
	// stays up either way.
	s.live.Store(s.handler.ai != nil)
	if !s.live.Load() {
		s.handler.log.Info("live model unavailable, vibe session in fallback mode",
			zap.String("user_id", userID))
	}

	s.send(affectEvent{Type: "auth_success", Timestamp: time.Now().UTC().Format(time.RFC3339)})
	return true
}

func (s *session) handleAudio(msg *clientMessage) {
	// Excess messages inside the window are dropped without a reply.
	if !s.limiter.Allow(time.Now()) {
		return
	}

	chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
	if err != nil {
		s.send(affectEvent{Type: "error", Message: "audio must be base64"})
		return
	}
	// The cap applies to the decoded payload, not its base64 encoding.
	if len(chunk) > config.MaxAudioBytes {
		s.send(affectEvent{Type: "error", Message: "audio payload too large"})
		return
	}

	s.bufMu.Lock()
	s.buffer.Append(chunk)
	s.bufMu.Unlock()
}

// drainLoop periodically forwards buffered audio to the live model (or the
// fallback generator) regardless of message arrival.
func (s *session) drainLoop() {
	ticker := time.NewTicker(config.AudioBatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.drainOnce()
		}
	}
}

func (s *session) drainOnce() {
	if !s.authenticated.Load() {
		return
	}

	s.bufMu.Lock()
	audio := s.buffer.Drain()
	s.bufMu.Unlock()
	if len(audio) == 0 {
		return
	}

	if !s.live.Load() {
		if ev := pickFallback(s.rng); ev != nil {
			s.send(*ev)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.AudioBatchInterval*4)
	reply, err := s.handler.ai.AnalyzeAudio(ctx, liveInstruction, audio, "audio/pcm")
	cancel()
	if err != nil {
		s.handler.log.Warn("live audio analysis failed",
			zap.String("user_id", s.userID), zap.Error(err))
		return
	}
	s.send(parseAffect(reply))
}

// parseAffect maps the model reply to an affect event, forwarding raw text
// at a default confidence when the reply is not the expected JSON.
func parseAffect(reply string) affectEvent {
	var parsed struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Indicator  string  `json:"indicator"`
	}
	if err := genai.UnmarshalModelJSON(reply, &parsed); err != nil || parsed.Text == "" {
		return affectEvent{
			Type:       "affect",
			Text:       reply,
			Confidence: 0.5,
			Indicator:  "neutral",
			Source:     "live",
		}
	}
	return affectEvent{
		Type:       "affect",
		Text:       parsed.Text,
		Confidence: parsed.Confidence,
		Indicator:  parsed.Indicator,
		Source:     "live",
	}
}

// pingLoop keeps the connection alive with control-frame pings.
func (s *session) pingLoop() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *session) send(ev affectEvent) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(ev); err != nil {
		s.handler.log.Debug("vibe event write failed", zap.Error(err))
	}
}

func (s *session) closeWith(code int, reason string) {
	s.writeMu.Lock()
	deadline := time.Now().Add(5 * time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	s.writeMu.Unlock()
}

func (s *session) close() {
	close(s.done)
	s.live.Store(false)
	_ = s.conn.Close()
}
