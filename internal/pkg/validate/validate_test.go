package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"canonical lowercase", "c3a1f8e2-4b6d-4f0a-9c2e-7d5b1a8f3e60", true},
		{"uppercase accepted", "C3A1F8E2-4B6D-4F0A-9C2E-7D5B1A8F3E60", true},
		{"empty", "", false},
		{"too short", "c3a1f8e2-4b6d-4f0a-9c2e", false},
		{"missing dashes", "c3a1f8e24b6d4f0a9c2e7d5b1a8f3e60", false},
		{"non-hex characters", "z3a1f8e2-4b6d-4f0a-9c2e-7d5b1a8f3e60", false},
		{"trailing garbage", "c3a1f8e2-4b6d-4f0a-9c2e-7d5b1a8f3e60x", false},
		{"sql injection shape", "1 OR 1=1;--", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, UUID(tc.input))
		})
	}
}
