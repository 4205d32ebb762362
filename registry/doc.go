// Package registry caches loaded model handles for the lifetime of a process.
//
// Loading a model is slow, so the Registry loads each model type at most once
// no matter how many goroutines ask for it at the same time, and every caller
// receives the same handle. Handles are shared read-only across concurrent
// reports.
//
// A failed load is not retried: the error, wrapped in
// core.ErrModelUnavailable, is returned to every later caller until the
// process restarts with a working configuration.
//
//	reg, err := registry.New(provider)
//	if err != nil {
//	    return err
//	}
//	defer reg.Close()
//
//	extractor, err := reg.Extractor(ctx)
package registry
