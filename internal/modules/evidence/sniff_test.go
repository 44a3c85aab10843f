package evidence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectMIME(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want string
	}{
		{"pdf", []byte("%PDF-1.7 ..."), "application/pdf"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}, "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg"},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"zip", []byte{'P', 'K', 0x03, 0x04, 0x14}, "application/zip"},
		{"mp3 id3", []byte("ID3\x04\x00"), "audio/mpeg"},
		{"mp3 sync word", []byte{0xFF, 0xFB, 0x90}, "audio/mpeg"},
		{"wav", []byte("RIFF\x24\x08\x00\x00WAVEfmt "), "audio/wav"},
		{"mp4", []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2'}, "video/mp4"},
		{"plain text", []byte("hello world"), ""},
		{"empty", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, detectMIME(tc.head))
		})
	}
}

func TestContentAllowed(t *testing.T) {
	cases := []struct {
		name     string
		declared string
		head     []byte
		want     bool
	}{
		{"pdf magic", "application/pdf", []byte("%PDF-1.4"), true},
		{"octet-stream always passes", "application/octet-stream", []byte{0x00, 0x01, 0x02}, true},
		{"plain text passes", "text/plain", []byte("witness statement\n"), true},
		{"json passes", "application/json", []byte(`{"k":1}`), true},
		{"unrecognized binary rejected", "application/x-msdownload", []byte{0x4D, 0x5A, 0x00, 0x01}, false},
		{"nul bytes rejected", "text/plain", []byte{'a', 0x00, 'b'}, false},
		{"empty body passes", "text/plain", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, contentAllowed(tc.declared, tc.head))
		})
	}
}

func TestFileTypeOf(t *testing.T) {
	require.Equal(t, "document", fileTypeOf("application/pdf"))
	require.Equal(t, "document", fileTypeOf("text/plain"))
	require.Equal(t, "image", fileTypeOf("image/png"))
	require.Equal(t, "audio", fileTypeOf("audio/mpeg"))
	require.Equal(t, "video", fileTypeOf("video/mp4"))
	require.Equal(t, "other", fileTypeOf("application/octet-stream"))
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "report.pdf", sanitizeFilename("report.pdf"))
	require.Equal(t, "report.pdf", sanitizeFilename("../../etc/report.pdf"))
	require.Equal(t, "report.pdf", sanitizeFilename(`C:\docs\report.pdf`))
	require.Equal(t, "my_notes_1.txt", sanitizeFilename("my notes 1.txt"))
	require.Equal(t, "file", sanitizeFilename(""))
}
