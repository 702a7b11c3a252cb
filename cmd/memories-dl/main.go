package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/avelter/memories-downloader/internal/config"
	"github.com/avelter/memories-downloader/internal/download"
	"github.com/avelter/memories-downloader/internal/manifest"
)

func main() {
	// Command line flags
	var (
		manifestFlag = flag.String("manifest", "", "Path to memories_history.json (overrides config)")
		outputFlag   = flag.String("output", "", "Output directory (overrides config)")
		configFlag   = flag.String("config", "", "Path to config file")
		noOverlay    = flag.Bool("no-overlay", false, "Skip compositing overlays onto media")
		noMetadata   = flag.Bool("no-metadata", false, "Skip writing EXIF/GPS metadata")
		jxlFlag      = flag.Bool("jxl", false, "Convert JPEGs to JPEG XL after download")
		strictFlag   = flag.Bool("strict-location", false, "Fail items that have no location metadata")
		workersFlag  = flag.Int("workers", 0, "Concurrent downloads (overrides config)")
		verboseFlag  = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag   = flag.Bool("dry-run", false, "Read the manifest without downloading")
	)

	flag.Parse()

	// CLI mode - require a manifest path
	if *manifestFlag == "" && flag.NArg() == 0 && *configFlag == "" {
		fmt.Println("Memories Downloader - Download your personal media export")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  memories-dl -manifest <memories_history.json> [options]")
		fmt.Println("  memories-dl <memories_history.json> [options]")
		fmt.Println()
		fmt.Println("For interactive mode, use: memories-tui")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Apply flags
	if *manifestFlag != "" {
		settings.ManifestPath = *manifestFlag
	} else if flag.NArg() > 0 {
		settings.ManifestPath = flag.Arg(0)
	}
	if *outputFlag != "" {
		settings.OutputDir = *outputFlag
	}
	if *workersFlag > 0 {
		settings.MaxConcurrentDownloads = *workersFlag
	}
	if *noOverlay {
		settings.ApplyOverlay = false
	}
	if *noMetadata {
		settings.WriteMetadata = false
	}
	if *jxlFlag {
		settings.ConvertToJXL = true
	}
	if *strictFlag {
		settings.StrictLocation = true
	}

	logLevel := slog.LevelWarn
	if *verboseFlag {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	fmt.Println("📸 Memories Downloader")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	if *dryRunFlag {
		store := manifest.NewStore(settings.ManifestPath, logger)
		records, err := store.LoadPending()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading manifest: %v\n", err)
			os.Exit(1)
		}
		images, videos := 0, 0
		for _, record := range records {
			if record.MediaType == "Image" {
				images++
			} else {
				videos++
			}
		}
		fmt.Printf("%d items pending: %d images, %d videos\n", len(records), images, videos)
		fmt.Println("\n[Dry run - not downloading]")
		return
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	// Create manager with progress callback
	manager := download.NewManager(settings, logger, func(event download.ProgressEvent) {
		if !*verboseFlag {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Println(prefix + event.Message)
	})

	// A spinner-style bar keeps quiet mode readable; verbose mode prints
	// events instead.
	var barDone chan struct{}
	if !*verboseFlag {
		barDone = make(chan struct{})
		go trackProgress(manager, barDone)
	}

	remaining, err := manager.Run(ctx)
	if barDone != nil {
		close(barDone)
	}
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nDownload cancelled. Completed items are already pruned from the manifest.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error during download: %v\n", err)
		os.Exit(1)
	}

	stats := manager.Stats()
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("✨ Complete! Downloaded %d items (%s)\n", stats.Succeeded, humanize.Bytes(uint64(stats.TotalBytes)))
	if remaining > 0 {
		fmt.Printf("   %d items failed and stay in the manifest:\n", remaining)
		for _, serr := range stats.Errors {
			name := serr.Filename
			if name == "" {
				name = serr.URL
			}
			fmt.Printf("   ✗ [%s] %s — %s\n", serr.Code, name, serr.Code.Description())
		}
		os.Exit(1)
	}
}

// trackProgress polls the manager and drives a terminal progress bar
// until done is closed.
func trackProgress(manager *download.Manager, done chan struct{}) {
	var bar *progressbar.ProgressBar

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			if bar != nil {
				_ = bar.Finish()
				fmt.Println()
			}
			return
		case <-ticker.C:
			stats := manager.Stats()
			if stats.Total == 0 {
				continue
			}
			if bar == nil || bar.GetMax() != stats.Total {
				bar = progressbar.NewOptions(stats.Total,
					progressbar.OptionSetDescription("downloading"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWriter(os.Stdout),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(stats.Completed)
		}
	}
}
