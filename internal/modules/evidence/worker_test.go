package evidence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestShouldRetryExtraction(t *testing.T) {
	transient := errors.New("upstream timeout")

	require.True(t, shouldRetryExtraction(transient, 1))
	require.False(t, shouldRetryExtraction(transient, maxExtractAttempts))
	require.False(t, shouldRetryExtraction(errModelUnavailable, 1))
	require.False(t, shouldRetryExtraction(fmt.Errorf("extract: %w", errModelUnavailable), 1))
}

func TestMergeMetadataPreservesExistingKeys(t *testing.T) {
	existing := datatypes.JSONMap{
		"originalName": "statement.pdf",
		"processed":    false,
	}

	merged := mergeMetadata(existing, map[string]interface{}{
		"processed": true,
		"forensic":  map[string]interface{}{"summary": "a witness statement"},
	})

	require.Equal(t, "statement.pdf", merged["originalName"])
	require.Equal(t, true, merged["processed"])
	require.Contains(t, merged, "forensic")

	// The source map must not be mutated.
	require.Equal(t, false, existing["processed"])
}

func TestMergeMetadataNilExisting(t *testing.T) {
	merged := mergeMetadata(nil, map[string]interface{}{"processing_error": "boom"})
	require.Equal(t, "boom", merged["processing_error"])
	require.Len(t, merged, 1)
}
