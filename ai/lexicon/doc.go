// Package lexicon provides an offline entity extractor driven by a YAML
// dictionary of labeled terms and regular expression patterns. It needs no
// model server, which makes it useful for air-gapped deployments and as a
// deterministic extractor in tests.
package lexicon
