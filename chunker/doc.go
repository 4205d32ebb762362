// Package chunker normalizes report text and splits it into token-bounded chunks.
//
// Normalization composes the text to NFC, strips control characters and
// collapses whitespace while keeping a byte-level table back to the original
// text, so that any span found in normalized text can be reported against the
// text the user submitted.
//
// Splitting packs tokens greedily up to a limit, preferring paragraph and then
// sentence boundaries near the limit. Consecutive chunks share a configurable
// number of tokens so that an entity cut by one boundary appears whole in at
// least one chunk.
//
// # Usage
//
//	splitter, err := chunker.NewSplitter(chunker.NewWordTokenizer())
//	if err != nil {
//	    return err
//	}
//	normalized, chunks, err := splitter.NormalizeAndSplit(text, 900, 64)
//
// Chunks never overlap by more than the requested token count and always tile
// the normalized text without gaps.
package chunker
