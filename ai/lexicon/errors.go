package lexicon

import "errors"

// ErrEmptyLexicon indicates a lexicon without any terms or patterns.
var ErrEmptyLexicon = errors.New("lexicon has no terms or patterns")
