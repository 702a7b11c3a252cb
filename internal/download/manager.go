package download

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelter/memories-downloader/internal/config"
	"github.com/avelter/memories-downloader/internal/convert"
	"github.com/avelter/memories-downloader/internal/ffmpeg"
	httpclient "github.com/avelter/memories-downloader/internal/http"
	ioutils "github.com/avelter/memories-downloader/internal/io"
	"github.com/avelter/memories-downloader/internal/manifest"
	"github.com/avelter/memories-downloader/internal/metadata"
	"github.com/avelter/memories-downloader/internal/model"
	"github.com/avelter/memories-downloader/internal/overlay"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// BatchStats is a snapshot of the current attempt's progress.
type BatchStats struct {
	Total      int
	Completed  int
	Succeeded  int
	Failed     int
	TotalBytes int64
	Errors     []StructuredError
}

// Manager coordinates the export download: it loads the pending
// manifest, runs the per-item pipeline across a bounded worker pool,
// prunes completed records, and retries the remaining batch until it
// converges or the attempt budget runs out.
type Manager struct {
	settings *config.Settings
	store    *manifest.Store
	services *services
	logger   *slog.Logger

	onProgress func(ProgressEvent)

	mu           sync.Mutex
	stats        BatchStats
	pendingPrune []string
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, logger *slog.Logger, onProgress func(ProgressEvent)) *Manager {
	cli := ffmpeg.NewCLI(
		ffmpeg.WithFFmpeg(settings.FFmpegPath),
		ffmpeg.WithFFprobe(settings.FFprobePath),
	)

	return &Manager{
		settings: settings,
		store:    manifest.NewStore(settings.ManifestPath, logger),
		services: &services{
			client:          httpclient.NewClient(settings.RequestTimeout()),
			resolver:        ioutils.NewNameResolver(settings.OutputDir),
			compositor:      overlay.NewCompositor(settings.JPEGQuality),
			videoCompositor: overlay.NewVideoCompositor(cli, settings.FFmpegTimeout()),
			imageMeta:       metadata.NewImageWriter(),
			videoMeta:       metadata.NewVideoWriter(cli, settings.FFmpegTimeout()),
			converter:       convert.NewJXLConverter(settings.CJXLPath, settings.CJXLTimeout(), logger),
			logger:          logger,
		},
		logger:     logger,
		onProgress: onProgress,
	}
}

// Run executes the download until every pending record has succeeded,
// the attempt budget is exhausted, or the context is cancelled. It
// returns the number of records still unresolved after the final
// attempt.
func (m *Manager) Run(ctx context.Context) (remaining int, err error) {
	if err := ioutils.EnsureDir(m.settings.OutputDir); err != nil {
		return 0, fmt.Errorf("prepare output directory: %w", err)
	}

	for attempt := 1; attempt <= m.settings.MaxAttempts; attempt++ {
		records, err := m.store.LoadPending()
		if err != nil {
			return 0, err
		}
		if len(records) == 0 {
			m.progress(ProgressEvent{Message: "Nothing left to download", Level: LevelSuccess})
			return 0, nil
		}

		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Attempt %d/%d: %d items pending", attempt, m.settings.MaxAttempts, len(records)),
			Level:   LevelInfo,
		})

		started := time.Now()
		failed, batchErr := m.runBatch(ctx, records)
		if batchErr != nil {
			return failed, batchErr
		}

		m.reportAttempt(attempt, time.Since(started))

		if failed == 0 {
			m.progress(ProgressEvent{Message: "All items downloaded", Level: LevelSuccess})
			return 0, nil
		}
		remaining = failed

		if attempt < m.settings.MaxAttempts {
			m.progress(ProgressEvent{
				Message: fmt.Sprintf("%d items failed, retrying after cooldown", failed),
				Level:   LevelWarning,
			})
			if !m.waitForRetry(ctx) {
				return remaining, ctx.Err()
			}
		}
	}

	return remaining, nil
}

// Stats returns a snapshot of the current attempt's progress.
func (m *Manager) Stats() BatchStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.stats
	snapshot.Errors = append([]StructuredError(nil), m.stats.Errors...)
	return snapshot
}

// runBatch processes one attempt over the given records. Successes are
// pruned from the manifest as they happen; on cancellation the prunes
// confirmed so far are still flushed so finished work is not repeated.
func (m *Manager) runBatch(ctx context.Context, records []model.RawRecord) (failed int, err error) {
	m.resetStats(len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.MaxConcurrentDownloads)

	for _, record := range records {
		record := record
		g.Go(func() error {
			m.runOne(gctx, record)
			return nil
		})
	}
	_ = g.Wait()

	m.flushPrunes()

	if ctx.Err() != nil {
		m.mu.Lock()
		failed = m.stats.Failed
		m.mu.Unlock()
		return failed, ctx.Err()
	}

	m.mu.Lock()
	failed = m.stats.Failed
	m.mu.Unlock()
	return failed, nil
}

func (m *Manager) runOne(ctx context.Context, record model.RawRecord) {
	if ctx.Err() != nil {
		m.recordFailure(StructuredError{
			URL:  record.PreferredURL(),
			Code: CodeInterrupted,
		})
		return
	}

	mem, err := model.NewMemory(record)
	if err != nil {
		m.logger.Warn("skipping unparsable record", "url", record.PreferredURL(), "error", err)
		m.recordFailure(StructuredError{
			URL:  record.PreferredURL(),
			Code: CodeUnknown,
		})
		return
	}

	t := &task{memory: mem, settings: m.settings, services: m.services}
	out := t.run(ctx)

	if out.Err != nil {
		m.recordFailure(*out.Err)
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("[%s] %s: %s", out.Err.Code, out.Filename, out.Err.Code.Description()),
			Level:   LevelError,
		})
		return
	}

	m.recordSuccess(out)
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Downloaded: %s (%s)", out.Filename, humanize.Bytes(uint64(out.Bytes))),
		Level:   LevelVerbose,
	})
}

func (m *Manager) resetStats(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = BatchStats{Total: total}
	m.pendingPrune = nil
}

func (m *Manager) recordSuccess(out Outcome) {
	m.mu.Lock()
	m.stats.Completed++
	m.stats.Succeeded++
	m.stats.TotalBytes += out.Bytes
	m.pendingPrune = append(m.pendingPrune, out.URL)
	shouldFlush := m.settings.PruneBatchSize <= 1 || len(m.pendingPrune) >= m.settings.PruneBatchSize
	m.mu.Unlock()

	if shouldFlush {
		m.flushPrunes()
	}
}

func (m *Manager) recordFailure(serr StructuredError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Completed++
	m.stats.Failed++
	m.stats.Errors = append(m.stats.Errors, serr)
}

// flushPrunes removes accumulated successes from the manifest. A flush
// failure is logged and the URLs kept for the next flush; the files on
// disk are already complete, so the worst case is a redundant re-check
// on a later run.
func (m *Manager) flushPrunes() {
	m.mu.Lock()
	urls := m.pendingPrune
	m.pendingPrune = nil
	m.mu.Unlock()

	if len(urls) == 0 {
		return
	}

	if err := m.store.Remove(urls...); err != nil {
		m.logger.Warn("failed to prune manifest", "count", len(urls), "error", err)
		m.mu.Lock()
		m.pendingPrune = append(urls, m.pendingPrune...)
		m.mu.Unlock()
	}
}

func (m *Manager) reportAttempt(attempt int, elapsed time.Duration) {
	stats := m.Stats()

	m.logger.Info("attempt finished",
		"attempt", attempt,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"downloaded", humanize.Bytes(uint64(stats.TotalBytes)),
		"elapsed", elapsed.Round(time.Millisecond))

	for _, serr := range stats.Errors {
		m.logger.Debug("item failed",
			"file", serr.Filename,
			"url", serr.URL,
			"code", serr.Code,
			"reason", serr.Code.Description())
	}
}

// waitForRetry sleeps for the configured cooldown; it returns false
// when the context is cancelled first.
func (m *Manager) waitForRetry(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(m.settings.AttemptCooldown()):
		return true
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
