// Package pipeline turns free-text medical reports into structured reports.
//
// A Pipeline normalizes the input, splits it into overlapping token-bounded
// chunks, and runs entity extraction and summarization over every chunk on a
// worker pool. Entity offsets are remapped to the original text and entities
// repeated across chunk overlaps are merged by a DedupPolicy. Per-chunk
// summaries are reduced into one summary bounded by Config.Summary.
//
// Admission control happens before any model is touched: input longer than
// Config.MaxTotalLength fails with core.ErrInputTooLarge, and empty input
// yields a report with core.NoContentNotice.
//
// A model call that fails for one chunk is retried, then skipped. The report
// is still returned, lists the failure, and reports Partial() == true.
//
// Basic usage:
//
//	reg, _ := registry.New(provider)
//	p, err := pipeline.NewPipeline(reg, pipeline.WithPoolSize(4))
//	if err != nil {
//	    return err
//	}
//	defer p.Release()
//
//	report, err := p.Process(ctx, core.NewRawReport(text, "upload.txt"), nil)
package pipeline
