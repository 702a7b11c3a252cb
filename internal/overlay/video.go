package overlay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"
)

// Transcoder is the subset of the external transcoder the video
// compositor needs.
type Transcoder interface {
	ProbeDimensions(ctx context.Context, path string) (width, height int, err error)
	Run(ctx context.Context, timeout time.Duration, args ...string) error
}

// VideoCompositor burns a transparent overlay into a video via the
// external transcoder.
//
// Unlike image compositing, video output is always written directly to
// a file: re-encoding video in memory is impractical at scale.
type VideoCompositor struct {
	transcoder Transcoder
	timeout    time.Duration
}

// NewVideoCompositor creates a VideoCompositor running each transcoder
// invocation under timeout.
func NewVideoCompositor(transcoder Transcoder, timeout time.Duration) *VideoCompositor {
	return &VideoCompositor{transcoder: transcoder, timeout: timeout}
}

// Compose writes video bytes and the overlay to temp files, resizes the
// overlay to the probed video dimensions, and re-encodes the video with
// the overlay composited on top. The audio stream is copied unmodified.
//
// On any failure an incomplete output file is removed before the error
// is returned.
func (v *VideoCompositor) Compose(ctx context.Context, video, overlayPNG []byte, outputPath string) error {
	videoTmp, err := writeTemp(video, "overlay-*.mp4")
	if err != nil {
		return err
	}
	defer os.Remove(videoTmp)

	width, height, err := v.transcoder.ProbeDimensions(ctx, videoTmp)
	if err != nil {
		return err
	}

	resized, err := resizeOverlayPNG(overlayPNG, width, height)
	if err != nil {
		return err
	}

	overlayTmp, err := writeTemp(resized, "overlay-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(overlayTmp)

	args := []string{
		"-y",
		"-i", videoTmp,
		"-i", overlayTmp,
		"-filter_complex", "overlay=0:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-movflags", "+faststart",
		outputPath,
	}
	if err := v.transcoder.Run(ctx, v.timeout, args...); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("composite video: %w", err)
	}
	return nil
}

// resizeOverlayPNG re-encodes the overlay at exactly width x height.
func resizeOverlayPNG(overlayPNG []byte, width, height int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(overlayPNG))
	if err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}

	resized := resizeToMatch(img, image.Rect(0, 0, width, height))

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTemp(data []byte, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}
