// Package download provides the orchestration logic for fetching a
// personal media export: the per-item pipeline and the Manager that
// drives it across a worker pool.
//
// # Manager
//
// The Manager coordinates the entire run:
//
//  1. Load the pending records from the manifest
//  2. Download each item concurrently
//  3. Classify the payload (ZIP archive vs raw media)
//  4. Composite the overlay onto the base media
//  5. Write capture time and GPS metadata
//  6. Convert JPEGs to JPEG XL (optional)
//  7. Prune succeeded records from the manifest
//  8. Retry the remaining records until the attempt budget runs out
//
// # Basic Usage
//
//	manager := download.NewManager(settings, logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	remaining, err := manager.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// Items are processed by an errgroup pool bounded by
// settings.MaxConcurrentDownloads. Items are independent of each
// other; the only shared mutable state is the output filename
// reservation and the manifest, both of which are internally
// synchronised.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// # Error Codes
//
// Every failure is reduced to a short Code (HTTP status, NET, ZIP,
// FILE, OVR, LOC, INT, ERR) so a batch summary stays readable. The
// record behind a failed item stays in the manifest and is retried on
// the next attempt or the next run.
package download
