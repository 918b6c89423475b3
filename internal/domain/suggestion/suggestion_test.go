package suggestion

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedbackType(t *testing.T) {
	for _, valid := range []string{"positive", "negative", "skipped", "save_later"} {
		ft, err := ParseFeedbackType(valid)
		require.NoError(t, err)
		assert.Equal(t, FeedbackType(valid), ft)
	}

	for _, invalid := range []string{"", "liked", "SKIPPED", "save-later"} {
		_, err := ParseFeedbackType(invalid)
		assert.True(t, errors.Is(err, ErrInvalidFeedbackType), "input %q", invalid)
	}
}

func TestErrorRecord(t *testing.T) {
	rec := ErrorRecord("connection refused")
	assert.Equal(t, "Error", rec.BandName)
	assert.Equal(t, "N/A", rec.Genre)
	assert.Equal(t, "N/A", rec.MatchReason)
	assert.Contains(t, rec.Description, "connection refused")
	assert.True(t, rec.IsError())

	assert.False(t, Parsed{BandName: "Boards of Canada", MatchReason: "ambient fit"}.IsError())
}
