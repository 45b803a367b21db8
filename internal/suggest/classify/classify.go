// Package classify labels transcript text by rhetorical type and detects
// opening hooks using a lexical cue list.
package classify

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

// HeadChars is how much of a window's opening is inspected for hooks.
const HeadChars = 150

// Hook strength weights. The sum is capped at 1.0.
const (
	weightQuestion    = 0.35
	weightStatistic   = 0.25
	weightImpact      = 0.20
	weightImperative  = 0.15
	weightContrast    = 0.10
	weightExclamation = 0.15
	weightBrevity     = 0.10

	brevityMaxWords   = 8
	exclamationMinLen = 10
)

// typePriority breaks ties between equally matched types.
var typePriority = []suggest.SegmentType{
	suggest.TypeTestimony,
	suggest.TypeCallToAction,
	suggest.TypeStory,
	suggest.TypePrayer,
	suggest.TypeTeaching,
}

var percentRe = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)

//go:embed lexicon.yaml
var embeddedLexicon []byte

// Lexicon is the YAML cue list.
type Lexicon struct {
	Interrogatives   []string            `yaml:"interrogatives"`
	Imperatives      []string            `yaml:"imperatives"`
	Impact           []string            `yaml:"impact"`
	Contrast         []string            `yaml:"contrast"`
	StatisticPhrases []string            `yaml:"statistic_phrases"`
	Types            map[string][]string `yaml:"types"`
}

// ParseLexicon decodes and validates a YAML lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	for name := range lex.Types {
		if !knownType(suggest.SegmentType(name)) {
			return nil, fmt.Errorf("lexicon: unknown segment type %q", name)
		}
	}
	if len(lex.Types) == 0 {
		return nil, fmt.Errorf("lexicon: no segment types defined")
	}
	return &lex, nil
}

// LoadLexicon reads a lexicon override from disk.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

func knownType(t suggest.SegmentType) bool {
	for _, p := range typePriority {
		if p == t {
			return true
		}
	}
	return false
}

// Classifier is safe for concurrent use.
type Classifier struct {
	interrogatives []string
	imperatives    []string
	impact         []string
	contrast       []string
	statisticRe    *regexp.Regexp
	types          map[suggest.SegmentType][]string
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier built from the embedded lexicon.
func Default() *Classifier {
	defaultOnce.Do(func() {
		lex, err := ParseLexicon(embeddedLexicon)
		if err != nil {
			panic(fmt.Sprintf("embedded lexicon: %v", err))
		}
		defaultClassifier = New(lex)
	})
	return defaultClassifier
}

// New builds a classifier, normalizing every cue the same way input text is.
func New(lex *Lexicon) *Classifier {
	c := &Classifier{
		interrogatives: normalizeAll(lex.Interrogatives),
		imperatives:    normalizeAll(lex.Imperatives),
		impact:         normalizeAll(lex.Impact),
		contrast:       normalizeAll(lex.Contrast),
		types:          make(map[suggest.SegmentType][]string, len(lex.Types)),
	}
	for name, cues := range lex.Types {
		c.types[suggest.SegmentType(name)] = normalizeAll(cues)
	}

	phrases := normalizeAll(lex.StatisticPhrases)
	if len(phrases) > 0 {
		quoted := make([]string, len(phrases))
		for i, p := range phrases {
			quoted[i] = regexp.QuoteMeta(p)
		}
		c.statisticRe = regexp.MustCompile(`\b\d+ (?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return c
}

// Result is the classification of one text window.
type Result struct {
	Type         suggest.SegmentType
	Hooks        []suggest.HookKind
	HookStrength float64
}

// Classify labels text with a rhetorical type taken from the whole text and
// hooks taken from its first HeadChars characters.
func (c *Classifier) Classify(text string) Result {
	hooks, strength := c.Hooks(Head(text, HeadChars))
	return Result{
		Type:         c.Type(text),
		Hooks:        hooks,
		HookStrength: strength,
	}
}

// Hooks detects hook kinds in text and scores how strong an opening it is.
func (c *Classifier) Hooks(text string) ([]suggest.HookKind, float64) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, 0
	}
	padded := " " + normalized + " "

	var hooks []suggest.HookKind
	var strength float64

	if strings.ContainsAny(text, "?¿") || opensWith(normalized, c.interrogatives) {
		hooks = append(hooks, suggest.HookQuestion)
		strength += weightQuestion
	}
	if opensWith(normalized, c.imperatives) {
		hooks = append(hooks, suggest.HookImperative)
		strength += weightImperative
	}
	if percentRe.MatchString(text) || (c.statisticRe != nil && c.statisticRe.MatchString(normalized)) {
		hooks = append(hooks, suggest.HookStatistic)
		strength += weightStatistic
	}
	if containsAny(padded, c.impact) {
		strength += weightImpact
	}
	if containsAny(padded, c.contrast) {
		strength += weightContrast
	}
	if strings.ContainsAny(text, "!¡") && utf8.RuneCountInString(strings.TrimSpace(text)) > exclamationMinLen {
		strength += weightExclamation
	}
	if len(strings.Fields(normalized)) <= brevityMaxWords {
		strength += weightBrevity
	}

	return hooks, min(strength, 1.0)
}

// Type returns the best matching segment type for text.
func (c *Classifier) Type(text string) suggest.SegmentType {
	return PickType(c.CountCues(text))
}

// CountCues counts type cue matches in text. Counts from adjacent pieces of
// text can be summed to classify their concatenation.
func (c *Classifier) CountCues(text string) map[suggest.SegmentType]int {
	normalized := Normalize(text)
	counts := make(map[suggest.SegmentType]int)
	if normalized == "" {
		return counts
	}
	padded := " " + normalized + " "
	for t, cues := range c.types {
		n := 0
		for _, cue := range cues {
			n += strings.Count(padded, " "+cue+" ")
		}
		if n > 0 {
			counts[t] = n
		}
	}
	return counts
}

// PickType chooses the type with the most cues. Ties go to the earlier entry
// in the priority list; no cues at all yields TypeNone.
func PickType(counts map[suggest.SegmentType]int) suggest.SegmentType {
	best, bestCount := suggest.TypeNone, 0
	for _, t := range typePriority {
		if n := counts[t]; n > bestCount {
			best, bestCount = t, n
		}
	}
	return best
}

// Normalize folds accents, lower-cases, turns punctuation into spaces and
// collapses whitespace.
func Normalize(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Head returns at most n runes from the start of text.
func Head(text string, n int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

func normalizeAll(cues []string) []string {
	out := make([]string, 0, len(cues))
	seen := make(map[string]bool, len(cues))
	for _, cue := range cues {
		n := Normalize(cue)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func opensWith(normalized string, cues []string) bool {
	head := normalized + " "
	for _, cue := range cues {
		if strings.HasPrefix(head, cue+" ") {
			return true
		}
	}
	return false
}

func containsAny(padded string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(padded, " "+cue+" ") {
			return true
		}
	}
	return false
}
