// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the models used by ReportLens.
//
// This package defines interfaces for entity extraction and summarization.
// The pipeline and registry depend on these abstractions rather than on
// concrete model backends.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - EntityExtractor: Finds labeled entity mentions with byte offsets
//   - Summarizer: Produces a length-bounded plain-language summary
//   - Provider: Loads both models; loading is slow and callers cache handles
//
// # Implementation Packages
//
//   - ai/openai: Summarizer and LLM extractor over OpenAI-compatible APIs
//   - ai/ner: Extractor backed by an HTTP NER service
//   - ai/lexicon: Offline dictionary extractor driven by a YAML lexicon
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Compose combines an extractor loader from one package with a summarizer
// loader from another:
//
//	summaries, err := openai.NewProvider(cfg)
//	terms := lexicon.NewLoader(cfg.LexiconPath)
//	provider := ai.Compose(terms, summaries)
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, ner.NewExtractor, etc.) return
// INTERFACE types. Test constructors in ai/mock return CONCRETE types so
// tests can inject behavior and inspect call counts.
//
// # Labels
//
// Extractors report labels through NormalizeLabel so that DRUG, DISEASE,
// DATE, ORG and PROCEDURE mean the same thing regardless of backend.
package ai
