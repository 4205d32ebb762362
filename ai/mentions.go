package ai

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mention is a labeled phrase to be located in text.
type Mention struct {
	Text  string
	Label string
}

// MentionPattern matches one phrase case-insensitively as a whole word.
// Internal whitespace in the phrase matches any whitespace run.
type MentionPattern struct {
	label string
	re    *regexp.Regexp
	words bool
}

// CompileMention builds a MentionPattern for a literal phrase.
// It returns nil for a blank phrase.
func CompileMention(m Mention) *MentionPattern {
	fields := strings.Fields(m.Text)
	if len(fields) == 0 {
		return nil
	}
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	return &MentionPattern{
		label: m.Label,
		re:    regexp.MustCompile(`(?i)` + strings.Join(fields, `\s+`)),
		words: true,
	}
}

// CompilePattern builds a MentionPattern from a regular expression. Matches
// are not required to fall on word boundaries.
func CompilePattern(label, expr string) (*MentionPattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &MentionPattern{label: label, re: re}, nil
}

// Label returns the label assigned to matches.
func (p *MentionPattern) Label() string {
	return p.label
}

// FindAll returns every match of the pattern in text.
func (p *MentionPattern) FindAll(text string) []ExtractedEntity {
	var found []ExtractedEntity
	for _, loc := range p.re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start == end {
			continue
		}
		if p.words && !wordBounded(text, start, end) {
			continue
		}
		found = append(found, ExtractedEntity{
			Text:  text[start:end],
			Label: p.label,
			Start: start,
			End:   end,
		})
	}
	return found
}

// LocateMentions finds every whole-word occurrence of each mention in text
// and resolves overlapping matches.
func LocateMentions(text string, mentions []Mention) []ExtractedEntity {
	var found []ExtractedEntity
	for _, m := range mentions {
		if p := CompileMention(m); p != nil {
			found = append(found, p.FindAll(text)...)
		}
	}
	return ResolveOverlaps(found)
}

// ResolveOverlaps keeps the longest of any overlapping matches, preferring the
// earlier one on equal length, and returns the survivors ordered by offset.
func ResolveOverlaps(entities []ExtractedEntity) []ExtractedEntity {
	if len(entities) == 0 {
		return []ExtractedEntity{}
	}

	ranked := make([]ExtractedEntity, len(entities))
	copy(ranked, entities)
	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := ranked[i].End-ranked[i].Start, ranked[j].End-ranked[j].Start
		if li != lj {
			return li > lj
		}
		return ranked[i].Start < ranked[j].Start
	})

	kept := make([]ExtractedEntity, 0, len(ranked))
	for _, e := range ranked {
		overlaps := false
		for _, k := range kept {
			if e.Start < k.End && k.Start < e.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, e)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})
	return kept
}

func wordBounded(text string, start, end int) bool {
	if start > 0 {
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		first, _ := utf8.DecodeRuneInString(text[start:])
		if isWordRune(before) && isWordRune(first) {
			return false
		}
	}
	if end < len(text) {
		after, _ := utf8.DecodeRuneInString(text[end:])
		last, _ := utf8.DecodeLastRuneInString(text[:end])
		if isWordRune(after) && isWordRune(last) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
