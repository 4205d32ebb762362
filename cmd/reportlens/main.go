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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/reportlens"
	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/config"
	"github.com/poiesic/reportlens/core"
	"github.com/poiesic/reportlens/pipeline"
	"github.com/poiesic/reportlens/source"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the CLI. Report text is read from stdin when no file is
// given; rendered reports go to stdout; logs and progress go to stderr.
func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "reportlens",
		Usage:     "Extract medical entities from reports and summarize them",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"REPORTLENS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file if it exists",
				Value: ".env",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Analyze one or more reports",
				ArgsUsage: "[file ...]",
				Action:    analyzeCommand,
				Flags: append(modelFlags(),
					&cli.IntFlag{
						Name:  "max-chunk-tokens",
						Usage: "Maximum tokens per chunk",
					},
					&cli.IntFlag{
						Name:  "overlap-tokens",
						Usage: "Tokens shared between consecutive chunks",
					},
					&cli.IntFlag{
						Name:  "max-total-length",
						Usage: "Reject reports longer than this many characters",
					},
					&cli.IntFlag{
						Name:  "summary-max",
						Usage: "Upper bound on summary length in tokens",
					},
					&cli.StringSliceFlag{
						Name:  "label",
						Usage: "Keep only entities with this category (repeatable)",
					},
					&cli.StringFlag{
						Name:  "tokenizer",
						Usage: "Tokenizer used to measure chunks (word, bpe or a tiktoken encoding)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of chunks processed concurrently",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, json)",
						Value:   "text",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Do not reuse results for repeated reports",
					},
					&cli.BoolFlag{
						Name:    "progress",
						Aliases: []string{"p"},
						Usage:   "Report chunk progress on stderr",
					},
				),
			},
			{
				Name:   "check",
				Usage:  "Validate the configuration and load both models",
				Action: checkCommand,
				Flags:  modelFlags(),
			},
		},
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "OpenAI-compatible model host URL",
			EnvVars: []string{"REPORTLENS_HOST"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the model host",
			EnvVars: []string{"REPORTLENS_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "summarizer-model",
			Usage: "Summarization model name",
		},
		&cli.StringFlag{
			Name:  "extractor-model",
			Usage: "Entity extraction model name (llm backend)",
		},
		&cli.StringFlag{
			Name:  "extractor",
			Usage: "Entity extraction backend (llm, ner, lexicon)",
		},
		&cli.StringFlag{
			Name:    "ner-host",
			Usage:   "NER service URL (ner backend)",
			EnvVars: []string{"REPORTLENS_NER_HOST"},
		},
		&cli.StringFlag{
			Name:  "lexicon",
			Usage: "Lexicon file (lexicon backend); empty selects the built-in lexicon",
		},
	}
}

func setup(c *cli.Context) error {
	if path := c.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the configuration file and applies command line overrides.
func loadConfig(c *cli.Context) (*config.File, error) {
	f, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	strOverrides := map[string]*string{
		"host":             &f.AI.Host,
		"api-key":          &f.AI.APIKey,
		"summarizer-model": &f.AI.SummarizerModel,
		"extractor-model":  &f.AI.ExtractorModel,
		"extractor":        &f.AI.Extractor,
		"ner-host":         &f.AI.NERHost,
		"lexicon":          &f.AI.Lexicon,
		"tokenizer":        &f.Pipeline.Tokenizer,
	}
	for name, dst := range strOverrides {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	intOverrides := map[string]*int{
		"max-chunk-tokens": &f.Pipeline.MaxChunkTokens,
		"overlap-tokens":   &f.Pipeline.OverlapTokens,
		"max-total-length": &f.Pipeline.MaxTotalLength,
		"summary-max":      &f.Pipeline.SummaryMax,
		"workers":          &f.Pipeline.PoolSize,
	}
	for name, dst := range intOverrides {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	if c.IsSet("label") {
		f.Pipeline.Labels = c.StringSlice("label")
	}
	if c.Bool("no-cache") {
		f.Cache.Enabled = false
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func newAnalyzer(f *config.File) (*reportlens.Analyzer, error) {
	tok, err := chunker.NewTokenizer(f.Pipeline.Tokenizer)
	if err != nil {
		return nil, err
	}
	pipelineOpts, err := f.PipelineOptions()
	if err != nil {
		return nil, err
	}

	opts := []reportlens.AnalyzerOption{
		reportlens.WithAIConfig(f.AIConfig()),
		reportlens.WithPipelineConfig(f.PipelineConfig()),
		reportlens.WithTokenizer(tok),
		reportlens.WithPipelineOptions(pipelineOpts...),
	}
	if f.Cache.Enabled {
		opts = append(opts, reportlens.WithCache(f.Cache.TTL))
	} else {
		opts = append(opts, reportlens.WithoutCache())
	}
	return reportlens.NewAnalyzer(opts...)
}

func analyzeCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	format := strings.ToLower(c.String("format"))
	render, ok := renderers[format]
	if !ok {
		return fmt.Errorf("invalid format %q: must be one of text, json", format)
	}

	f, err := loadConfig(c)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(f)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	if f.AI.Warmup {
		if err := analyzer.Warmup(ctx); err != nil {
			return describe(err)
		}
	}

	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = []string{source.Stdin}
	}

	var failed []error
	for i, path := range paths {
		report, err := source.Load(path, source.WithStdin(c.App.Reader))
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			continue
		}

		var monitor pipeline.Monitor
		if c.Bool("progress") {
			monitor = newProgressMonitor(c.App.ErrWriter)
		}
		result, err := analyzer.AnalyzeWithMonitor(ctx, report, monitor)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed = append(failed, fmt.Errorf("%s: %w", report.Source, describe(err)))
			continue
		}

		if i > 0 && format == "text" {
			fmt.Fprintln(c.App.Writer)
		}
		if err := render(c.App.Writer, result); err != nil {
			return err
		}
	}

	for _, err := range failed {
		fmt.Fprintf(c.App.ErrWriter, "error: %v\n", err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d reports failed", len(failed), len(paths))
	}
	return nil
}

func checkCommand(c *cli.Context) error {
	f, err := loadConfig(c)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(f)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	if err := analyzer.Warmup(c.Context); err != nil {
		return describe(err)
	}

	aiCfg := f.AIConfig()
	fmt.Fprintf(c.App.Writer, "Host: %s\n", aiCfg.Host)
	fmt.Fprintf(c.App.Writer, "Summarizer model: %s\n", aiCfg.SummarizerModel)
	fmt.Fprintf(c.App.Writer, "Extractor: %s\n", aiCfg.ExtractorBackend)
	fmt.Fprintln(c.App.Writer, "OK")
	return nil
}

// describe turns the failures a user can act on into plain messages.
func describe(err error) error {
	switch {
	case errors.Is(err, core.ErrInputTooLarge):
		return fmt.Errorf("report is too large to analyze, split it or raise max_total_length (%w)", err)
	case errors.Is(err, core.ErrModelUnavailable):
		return fmt.Errorf("models could not be loaded, check the host and model names (%w)", err)
	}
	return err
}
