package trim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

func segments() []suggest.Segment {
	return []suggest.Segment{
		{ID: 1, StartMs: 10000, EndMs: 14800},
		{ID: 2, StartMs: 15200, EndMs: 40000},
		{ID: 3, StartMs: 40300, EndMs: 70000},
		{ID: 4, StartMs: 70400, EndMs: 94500},
		{ID: 5, StartMs: 95000, EndMs: 100000},
	}
}

func TestApplySnapsStartToSegmentBoundary(t *testing.T) {
	c := Clip{
		StartMs: 10000,
		EndMs:   100000,
		Trim:    &suggest.TrimSuggestion{StartOffsetSec: 5, EndOffsetSec: 0},
	}

	out, err := Apply(c, segments(), DefaultBounds())
	require.NoError(t, err)
	assert.Equal(t, int64(15200), out.StartMs)
	assert.Equal(t, int64(100000), out.EndMs)
	assert.Equal(t, int64(84800), out.EndMs-out.StartMs)
	assert.True(t, out.Applied)
}

func TestApplySnapsEndToSegmentBoundary(t *testing.T) {
	c := Clip{
		StartMs: 10000,
		EndMs:   100000,
		Trim:    &suggest.TrimSuggestion{EndOffsetSec: 6},
	}

	out, err := Apply(c, segments(), DefaultBounds())
	require.NoError(t, err)
	assert.Equal(t, int64(10000), out.StartMs)
	assert.Equal(t, int64(94500), out.EndMs)
}

func TestApplyIsIdempotent(t *testing.T) {
	c := Clip{
		StartMs: 10000,
		EndMs:   100000,
		Trim:    &suggest.TrimSuggestion{StartOffsetSec: 5},
	}

	once, err := Apply(c, segments(), DefaultBounds())
	require.NoError(t, err)
	twice, err := Apply(once, segments(), DefaultBounds())
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestApplyRejectsInvalidDuration(t *testing.T) {
	c := Clip{
		StartMs: 10000,
		EndMs:   100000,
		Trim:    &suggest.TrimSuggestion{StartOffsetSec: 60, EndOffsetSec: 20},
	}

	out, err := Apply(c, segments(), DefaultBounds())
	assert.ErrorIs(t, err, ErrTrimInvalid)
	assert.Equal(t, c, out)
	assert.False(t, out.Applied)
}

func TestApplyRejectsMalformedOffsets(t *testing.T) {
	tests := []struct {
		name string
		trim suggest.TrimSuggestion
	}{
		{"negative start", suggest.TrimSuggestion{StartOffsetSec: -2}},
		{"negative end", suggest.TrimSuggestion{EndOffsetSec: -0.5}},
		{"NaN start", suggest.TrimSuggestion{StartOffsetSec: math.NaN()}},
		{"infinite start", suggest.TrimSuggestion{StartOffsetSec: math.Inf(1)}},
		{"infinite end", suggest.TrimSuggestion{EndOffsetSec: math.Inf(1)}},
		{"negative infinity", suggest.TrimSuggestion{EndOffsetSec: math.Inf(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trim := tt.trim
			c := Clip{StartMs: 10000, EndMs: 100000, Trim: &trim}

			out, err := Apply(c, segments(), DefaultBounds())
			assert.ErrorIs(t, err, ErrTrimInvalid)
			assert.Equal(t, c, out)
		})
	}
}

func TestApplyWithoutTrim(t *testing.T) {
	_, err := Apply(Clip{StartMs: 0, EndMs: 30000}, segments(), DefaultBounds())
	assert.ErrorIs(t, err, ErrNoTrim)
}

func TestApplyWithoutSegmentsUsesRawOffsets(t *testing.T) {
	c := Clip{StartMs: 0, EndMs: 60000, Trim: &suggest.TrimSuggestion{StartOffsetSec: 2.5, EndOffsetSec: 1}}

	out, err := Apply(c, nil, DefaultBounds())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), out.StartMs)
	assert.Equal(t, int64(59000), out.EndMs)
}

func TestApplyTiePrefersInwardBoundary(t *testing.T) {
	segs := []suggest.Segment{
		{StartMs: 0, EndMs: 9000},
		{StartMs: 9000, EndMs: 11000},
		{StartMs: 11000, EndMs: 60000},
	}
	c := Clip{StartMs: 0, EndMs: 60000, Trim: &suggest.TrimSuggestion{StartOffsetSec: 10}}

	out, err := Apply(c, segs, DefaultBounds())
	require.NoError(t, err)
	assert.Equal(t, int64(11000), out.StartMs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		start   int64
		end     int64
		wantErr bool
	}{
		{"minimum", 0, 10000, false},
		{"maximum", 0, 120000, false},
		{"too short", 0, 9999, true},
		{"too long", 0, 120001, true},
		{"inverted", 5000, 1000, true},
		{"negative start", -1, 20000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.start, tt.end, DefaultBounds())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTrimInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
