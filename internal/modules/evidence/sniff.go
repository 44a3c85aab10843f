package evidence

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// sniffLen is how many leading bytes we need to classify a file.
const sniffLen = 512

var magicSignatures = []struct {
	mime   string
	offset int
	sig    []byte
}{
	{"application/pdf", 0, []byte("%PDF")},
	{"image/png", 0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	{"image/jpeg", 0, []byte{0xFF, 0xD8, 0xFF}},
	{"image/gif", 0, []byte("GIF8")},
	{"image/webp", 8, []byte("WEBP")},
	{"application/zip", 0, []byte{'P', 'K', 0x03, 0x04}},
	{"audio/mpeg", 0, []byte("ID3")},
	{"audio/wav", 8, []byte("WAVE")},
	{"video/mp4", 4, []byte("ftyp")},
}

// detectMIME classifies file content by its magic bytes. Returns "" when
// no known signature matches.
func detectMIME(head []byte) string {
	for _, m := range magicSignatures {
		if len(head) < m.offset+len(m.sig) {
			continue
		}
		if bytes.Equal(head[m.offset:m.offset+len(m.sig)], m.sig) {
			return m.mime
		}
	}
	// MP3 frames without an ID3 tag start with a sync word.
	if len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0 {
		return "audio/mpeg"
	}
	return ""
}

// contentAllowed decides whether an upload passes magic-byte validation.
// Recognized signatures pass, declared octet-stream always passes, and
// content that reads as plain text passes. Unrecognized binary content
// is rejected.
func contentAllowed(declared string, head []byte) bool {
	if normalizeMIME(declared) == "application/octet-stream" {
		return true
	}
	if detectMIME(head) != "" {
		return true
	}
	return looksLikeText(head)
}

// looksLikeText reports whether the bytes plausibly form a text file:
// valid UTF-8 (allowing a truncated trailing rune) with no NUL or other
// non-whitespace control characters.
func looksLikeText(head []byte) bool {
	if len(head) == 0 {
		return true
	}
	for i := 0; i < len(head); {
		r, size := utf8.DecodeRune(head[i:])
		if r == utf8.RuneError && size == 1 {
			// A truncated multi-byte rune at the sniff boundary is fine.
			if len(head)-i < utf8.UTFMax && utf8.RuneStart(head[i]) {
				break
			}
			return false
		}
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
		i += size
	}
	return true
}

func normalizeMIME(raw string) string {
	mime := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}
