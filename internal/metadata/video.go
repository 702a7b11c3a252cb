package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avelter/memories-downloader/internal/model"
)

// Transcoder is the subset of the external transcoder the video writer
// needs: one invocation with a timeout.
type Transcoder interface {
	Run(ctx context.Context, timeout time.Duration, args ...string) error
}

// VideoWriter sets container metadata tags on MP4 files via a
// stream-copy remux; nothing is re-encoded.
//
// The location tag is replicated under two additional vendor-specific
// names so more players pick it up.
type VideoWriter struct {
	transcoder Transcoder
	timeout    time.Duration
}

// NewVideoWriter creates a VideoWriter running each remux under timeout.
func NewVideoWriter(transcoder Transcoder, timeout time.Duration) *VideoWriter {
	return &VideoWriter{transcoder: transcoder, timeout: timeout}
}

// Write remuxes the video at path with a creation-time tag and, when
// the record has coordinates, ISO-6709 location tags.
//
// The remux targets a temp sibling; only a zero exit replaces the
// original, otherwise the temp file is deleted and the error surfaced.
// The original is never left truncated.
func (w *VideoWriter) Write(ctx context.Context, path string, mem *model.Memory) error {
	args := []string{
		"-y",
		"-i", path,
		"-c", "copy",
		"-metadata", "creation_time=" + mem.ContainerTimestamp(),
	}

	if lat, lon, ok := mem.Coordinates(); ok {
		iso := ISO6709(lat, lon)
		args = append(args,
			"-metadata", "location="+iso,
			"-metadata", "com.apple.quicktime.location.ISO6709="+iso,
			"-metadata", fmt.Sprintf("Keys:GPSCoordinates=%v, %v", lat, lon),
		)
	}

	tmp := TempSibling(path)
	args = append(args, tmp)

	if err := w.transcoder.Run(ctx, w.timeout, args...); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write video metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace video: %w", err)
	}
	return nil
}

// ISO6709 formats a coordinate pair as ±DD.DDDDDD±DDD.DDDDDD/.
func ISO6709(lat, lon float64) string {
	return fmt.Sprintf("%+.6f%+.6f/", lat, lon)
}

// TempSibling returns the temporary sibling path for path, keeping the
// extension so external tools still recognise the container.
func TempSibling(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".tmp" + ext
}
