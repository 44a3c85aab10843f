package config

import "time"

// Fixed policy constants shared by the upload, reasoning and live-audio
// paths. These are compiled-in defaults, not runtime-tunable.
const (
	// MaxFileSizeMB caps a single evidence upload.
	MaxFileSizeMB = 500
	// MaxAudioPayloadMB caps one decoded audio chunk on the vibe socket.
	MaxAudioPayloadMB = 10

	MB               = 1 << 20
	MaxFileSizeBytes = MaxFileSizeMB * MB
	MaxAudioBytes    = MaxAudioPayloadMB * MB

	// RateLimitWindow / MaxMessagesPerWindow bound inbound messages per
	// vibe connection; excess messages in the window are dropped.
	RateLimitWindow      = time.Second
	MaxMessagesPerWindow = 10

	// AudioBatchInterval is the drain period for buffered audio chunks.
	AudioBatchInterval = 2 * time.Second
	// MaxAudioBufferChunks caps the per-connection chunk buffer; the
	// oldest chunk is dropped on overflow.
	MaxAudioBufferChunks = 100

	// WSPingInterval is the server-side keepalive period for vibe sockets.
	WSPingInterval = 30 * time.Second

	// MaxToolTurns bounds the reasoning tool-calling loop.
	MaxToolTurns = 5

	// Version is reported by the health endpoint.
	Version = "1.0.0"
)
