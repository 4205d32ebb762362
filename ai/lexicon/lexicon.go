package lexicon

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/poiesic/reportlens/ai"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultLexicon []byte

// Lexicon is a compiled set of labeled terms and patterns.
type Lexicon struct {
	patterns []*ai.MentionPattern
}

// file is the YAML layout:
//
//	terms:
//	  DRUG: [aspirin, metformin]
//	patterns:
//	  DATE: ['\b\d{4}-\d{2}-\d{2}\b']
type file struct {
	Terms    map[string][]string `yaml:"terms"`
	Patterns map[string][]string `yaml:"patterns"`
}

// Parse compiles a lexicon from YAML.
func Parse(data []byte) (*Lexicon, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}

	lex := &Lexicon{}
	for _, label := range sortedKeys(f.Terms) {
		for _, term := range f.Terms[label] {
			p := ai.CompileMention(ai.Mention{Text: term, Label: ai.NormalizeLabel(label)})
			if p != nil {
				lex.patterns = append(lex.patterns, p)
			}
		}
	}
	for _, label := range sortedKeys(f.Patterns) {
		for _, expr := range f.Patterns[label] {
			p, err := ai.CompilePattern(ai.NormalizeLabel(label), expr)
			if err != nil {
				return nil, fmt.Errorf("lexicon pattern %q for %s: %w", expr, label, err)
			}
			lex.patterns = append(lex.patterns, p)
		}
	}
	if len(lex.patterns) == 0 {
		return nil, ErrEmptyLexicon
	}
	return lex, nil
}

// Load reads and compiles a lexicon file.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the built-in lexicon.
func Default() *Lexicon {
	lex, err := Parse(defaultLexicon)
	if err != nil {
		panic(fmt.Sprintf("lexicon: built-in lexicon: %v", err))
	}
	return lex
}

// Size returns the number of compiled terms and patterns.
func (l *Lexicon) Size() int {
	return len(l.patterns)
}

// ExtractEntities implements ai.EntityExtractor. Overlapping matches resolve
// to the longest one.
func (l *Lexicon) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	var found []ai.ExtractedEntity
	for _, p := range l.patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found = append(found, p.FindAll(text)...)
	}
	return ai.ResolveOverlaps(found), nil
}

// Loader implements ai.ExtractorLoader for a lexicon file.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a loader for the lexicon at path. An empty path selects
// the built-in lexicon.
func NewLoader(path string) ai.ExtractorLoader {
	return &Loader{
		path:   path,
		logger: slog.Default().With("component", "lexicon"),
	}
}

// LoadExtractor compiles the lexicon.
func (l *Loader) LoadExtractor(ctx context.Context) (ai.EntityExtractor, error) {
	if l.path == "" {
		lex := Default()
		l.logger.Debug("loaded built-in lexicon", "entries", lex.Size())
		return lex, nil
	}
	lex, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded lexicon", "path", l.path, "entries", lex.Size())
	return lex, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
