package services

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// reYearSuffix matches a trailing year annotation: "/ 2019", "- 2019", "(2020)",
	// optionally as a range such as "2019/2020", or a bare range after whitespace.
	reYearSuffix = regexp.MustCompile(
		`(?:\s*[/\-–]\s*(\d{4})(?:\s*[\-–/]\s*(\d{4}))?` +
			`|\s*\(\s*(\d{4})(?:\s*[\-–/]\s*(\d{4}))?\s*\)` +
			`|\s+(\d{4})\s*[\-–/]\s*(\d{4}))\s*$`)
	// rePureYear matches a token that is nothing but a year or year range.
	rePureYear = regexp.MustCompile(`^\(?\s*(\d{4})(?:\s*[\-–/]\s*(\d{4}))?\s*\)?$`)
	// reYearInName finds a year or year range left inside a group name.
	reYearInName = regexp.MustCompile(`\b(\d{4})(?:\s*[\-–/]\s*(\d{4}))?\b`)

	// artifactReplacer removes encoding artifacts left by spreadsheet exports.
	artifactReplacer = strings.NewReplacer(
		"\ufeff", "",
		"\u200b", "",
		"\u200c", "",
		"\u200d", "",
		"\u2060", "",
		"\u00a0", " ",
	)
)

// NormalizerOptions configure multi-value splitting and year-noise detection.
type NormalizerOptions struct {
	Delimiters string
	MinYear    int
	MaxYear    int
}

// DefaultNormalizerOptions returns the delimiters and year range seen in roster exports.
func DefaultNormalizerOptions() NormalizerOptions {
	return NormalizerOptions{
		Delimiters: ",;|",
		MinYear:    1900,
		MaxYear:    2100,
	}
}

// Normalizer cleans and coerces raw field values. It holds no per-run state and
// returns identical output for identical input.
type Normalizer struct {
	opts NormalizerOptions
}

// NewNormalizer creates a Normalizer. Zero-valued options fall back to defaults.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	def := DefaultNormalizerOptions()
	if opts.Delimiters == "" {
		opts.Delimiters = def.Delimiters
	}
	if opts.MinYear == 0 && opts.MaxYear == 0 {
		opts.MinYear, opts.MaxYear = def.MinYear, def.MaxYear
	}
	return &Normalizer{opts: opts}
}

// Text coerces a raw value to a cleaned string. The boolean is false when the
// value is absent: nil, empty, or whitespace only.
func (n *Normalizer) Text(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			s = strconv.FormatInt(i, 10)
		} else if f, err := t.Float64(); err == nil {
			s = formatFloat(f)
		} else {
			s = t.String()
		}
	case float64:
		s = formatFloat(t)
	case float32:
		s = formatFloat(float64(t))
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		s = t.Format(time.RFC3339)
	default:
		s = fmt.Sprint(t)
	}

	s = strings.TrimSpace(norm.NFC.String(artifactReplacer.Replace(s)))
	if s == "" {
		return "", false
	}
	return s, true
}

// Display is Text with internal whitespace runs collapsed to one space.
func (n *Normalizer) Display(v any) (string, bool) {
	s, ok := n.Text(v)
	if !ok {
		return "", false
	}
	return strings.Join(strings.Fields(s), " "), true
}

// Bool interprets yes/no style values. Absent or unrecognised values yield def.
func (n *Normalizer) Bool(v any, def bool) bool {
	s, ok := n.Text(v)
	if !ok {
		return def
	}
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "ano", "a", "x":
		return true
	case "0", "false", "no", "n", "ne":
		return false
	default:
		return def
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2.1.2006",
	"2. 1. 2006",
}

// Date parses a date or timestamp. The boolean is false when the value is absent;
// an error is returned for present values in no known layout.
func (n *Normalizer) Date(v any) (time.Time, bool, error) {
	if t, ok := v.(time.Time); ok {
		return t, true, nil
	}
	s, ok := n.Text(v)
	if !ok {
		return time.Time{}, false, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, true, fmt.Errorf("unrecognised date %q", s)
}

// SplitGroups splits a multi-value group cell into canonical group names.
func (n *Normalizer) SplitGroups(text string) []string {
	names, _ := n.splitGroups(text)
	return names
}

// groupToken is one canonical group name with the year it was annotated with.
type groupToken struct {
	Name string
	Year string
}

// splitGroups returns the canonical names in first-seen order, deduplicated, and
// the number of year-noise annotations removed.
func (n *Normalizer) splitGroups(text string) ([]string, int) {
	tokens, noise := n.splitGroupTokens(text)
	if tokens == nil {
		return nil, noise
	}
	names := make([]string, len(tokens))
	for i, t := range tokens {
		names[i] = t.Name
	}
	return names, noise
}

// splitGroupTokens is splitGroups keeping each name's year. Within one cell the
// first occurrence of a name decides its year.
func (n *Normalizer) splitGroupTokens(text string) ([]groupToken, int) {
	pieces := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(n.opts.Delimiters, r)
	})

	var tokens []groupToken
	seen := make(map[string]bool, len(pieces))
	noise := 0
	for _, piece := range pieces {
		name, ok := n.Display(piece)
		if !ok {
			continue
		}
		name, year, stripped := n.stripYearNoise(name)
		noise += stripped
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if year == "" {
			year = n.yearInName(name)
		}
		tokens = append(tokens, groupToken{Name: name, Year: year})
	}
	return tokens, noise
}

// stripYearNoise removes trailing year annotations repeatedly and returns the
// outermost one as year. A token that is only a year comes back empty.
func (n *Normalizer) stripYearNoise(name string) (string, string, int) {
	stripped := 0
	year := ""
	for name != "" {
		if m := rePureYear.FindStringSubmatch(name); m != nil && n.yearsInRange(m[1:]) {
			return "", year, stripped + 1
		}

		loc := reYearSuffix.FindStringSubmatchIndex(name)
		if loc == nil {
			break
		}
		years := make([]string, 0, 2)
		for i := 2; i+1 < len(loc); i += 2 {
			if loc[i] >= 0 {
				years = append(years, name[loc[i]:loc[i+1]])
			}
		}
		if !n.yearsInRange(years) {
			break
		}
		if year == "" {
			year = strings.Join(years, "-")
		}
		name = strings.TrimSpace(name[:loc[0]])
		stripped++
	}
	return name, year, stripped
}

// yearInName returns the first in-range year or year range that is part of
// the name itself, e.g. "STUDIUM 2019".
func (n *Normalizer) yearInName(name string) string {
	for _, m := range reYearInName.FindAllStringSubmatch(name, -1) {
		years := []string{m[1]}
		if m[2] != "" {
			years = append(years, m[2])
		}
		if n.yearsInRange(years) {
			return strings.Join(years, "-")
		}
	}
	return ""
}

func (n *Normalizer) yearsInRange(years []string) bool {
	for _, y := range years {
		if y == "" {
			continue
		}
		v, err := strconv.Atoi(y)
		if err != nil || v < n.opts.MinYear || v > n.opts.MaxYear {
			return false
		}
	}
	return true
}

// formatFloat renders integral floats without a fractional part, so spreadsheet
// numbers such as phone 777123456.0 keep their textual form.
func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
