package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "plain object", content: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", content: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around object", content: "Here you go: {\"a\":1} hope it helps", want: `{"a":1}`},
		{name: "prose around array", content: "Result:\n[{\"id\":\"1\"}]\nDone", want: `[{"id":"1"}]`},
		{name: "empty", content: "   ", wantErr: true},
		{name: "no json", content: "sorry, I cannot help", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseItemsWrappedList(t *testing.T) {
	content := `{"results":[
		{"id":"c1","score":82,"reason":"strong hook"},
		{"id":2,"score":"64.5","rationale":"solid story","trim_suggestion":{"start_offset_sec":"2.5","end_offset_sec":0,"confidence":0.9}}
	]}`

	items, err := ParseItems(content)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "c1", items[0].ID)
	assert.Equal(t, 82.0, items[0].ScoreOr(0))
	assert.Equal(t, "strong hook", items[0].Reason)
	assert.Nil(t, items[0].Trim)

	assert.Equal(t, "2", items[1].ID)
	assert.Equal(t, 64.5, items[1].ScoreOr(0))
	assert.Equal(t, "solid story", items[1].Reason)
	require.NotNil(t, items[1].Trim)
	assert.Equal(t, suggest.TrimSuggestion{StartOffsetSec: 2.5, Confidence: 0.9}, *items[1].Trim)
}

func TestParseItemsGeneratedClips(t *testing.T) {
	content := "```json\n" + `{"clips":[{"start_sec":61.2,"end_sec":118,"score":90,"theme":"grace","timing_adjustment":{"end_offset_sec":3}}]}` + "\n```"

	items, err := ParseItems(content)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NotNil(t, items[0].StartSec)
	require.NotNil(t, items[0].EndSec)
	assert.Equal(t, 61.2, *items[0].StartSec)
	assert.Equal(t, 118.0, *items[0].EndSec)
	assert.Equal(t, "grace", items[0].Theme)
	require.NotNil(t, items[0].Trim)
	assert.Equal(t, 3.0, items[0].Trim.EndOffsetSec)
}

func TestParseItemsBareArrayAndSingleObject(t *testing.T) {
	items, err := ParseItems(`[{"window_id":"w1","score":10}]`)
	require.NoError(t, err)
	assert.Equal(t, "w1", items[0].ID)

	items, err = ParseItems(`{"clip_id":"x","score":55}`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "x", items[0].ID)
}

func TestParseItemsErrors(t *testing.T) {
	_, err := ParseItems(`{"results":[]}`)
	assert.Error(t, err)

	_, err = ParseItems(`{"results":[{"note":"nothing useful"}]}`)
	assert.Error(t, err)

	_, err = ParseItems(`{"results":"not a list"}`)
	assert.Error(t, err)

	_, err = ParseItems(`{"results":[{"id":"a","score":"high"}]}`)
	assert.Error(t, err)
}

func TestScoreOrClamps(t *testing.T) {
	high, low := 140.0, -3.0
	assert.Equal(t, 100.0, Item{Score: &high}.ScoreOr(0))
	assert.Equal(t, 0.0, Item{Score: &low}.ScoreOr(0))
	assert.Equal(t, 42.0, Item{}.ScoreOr(42))
}

func TestTimestamped(t *testing.T) {
	segs := []suggest.Segment{
		{ID: 1, StartMs: 0, EndMs: 12300, Text: " Welcome church "},
		{ID: 2, StartMs: 12300, EndMs: 15000, Text: "   "},
		{ID: 3, StartMs: 15000, EndMs: 45600, Text: "Open your Bibles"},
	}
	assert.Equal(t, "[0.0-12.3] Welcome church\n[15.0-45.6] Open your Bibles\n", Timestamped(segs))
}

func TestTruncateMiddle(t *testing.T) {
	s := strings.Repeat("a", 100) + strings.Repeat("b", 100)
	out := TruncateMiddle(s, 80)

	assert.LessOrEqual(t, len([]rune(out)), 80)
	assert.True(t, strings.HasPrefix(out, "aaa"))
	assert.True(t, strings.HasSuffix(out, "bbb"))
	assert.Contains(t, out, "transcript truncated")
	assert.Equal(t, "short", TruncateMiddle("short", 80))
}

func TestScoringPromptIncludesCandidates(t *testing.T) {
	c := suggest.Candidate{StartMs: 60000, EndMs: 105000, HeuristicScore: 0.71234, SegmentType: suggest.TypeStory,
		Hooks: []suggest.HookKind{suggest.HookQuestion}}
	pc := NewPromptCandidate("c0", c, strings.Repeat("x", 3000), 2000)

	assert.Equal(t, 60.0, pc.StartSec)
	assert.Equal(t, 45.0, pc.DurationSec)
	assert.Equal(t, 0.712, pc.HeuristicScore)
	assert.Len(t, pc.Text, 2000)

	req := ScoringPrompt([]PromptCandidate{pc})
	assert.NotEmpty(t, req.System)
	assert.Contains(t, req.User, `"id":"c0"`)
	assert.Contains(t, req.User, `"hook_hints":["question"]`)
	assert.Contains(t, req.User, "trim_suggestion")
}

func TestFullContextPromptHeader(t *testing.T) {
	req := FullContextPrompt(SermonInfo{Title: "Grace", Preacher: "Ana", DurationSec: 1800}, "[0.0-5.0] hi\n", 5, 10)
	assert.Contains(t, req.User, "Title: Grace")
	assert.Contains(t, req.User, "Preacher: Ana")
	assert.Contains(t, req.User, "Duration: 1800 seconds")
	assert.Contains(t, req.User, "5 to 10")
	assert.Contains(t, req.User, "[0.0-5.0] hi")
}
