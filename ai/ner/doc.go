// Package ner provides an entity extractor backed by an HTTP named entity
// recognition service, such as a spaCy or scispaCy model behind a small web
// server. Offsets returned by the service are character offsets and are
// converted to byte offsets before they leave this package.
package ner
