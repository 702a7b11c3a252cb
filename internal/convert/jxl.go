package convert

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
)

// JXLConverter re-encodes finished JPEGs into lossless JPEG XL via the
// external cjxl binary.
//
// Conversion is always best-effort: a missing binary, a non-zero exit
// or a timeout keeps the original file and logs a warning. It never
// fails the item that produced the JPEG.
type JXLConverter struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger

	resolveOnce sync.Once
	resolved    string
	resolveErr  error
}

// NewJXLConverter creates a converter invoking binary under timeout.
func NewJXLConverter(binary string, timeout time.Duration, logger *slog.Logger) *JXLConverter {
	if binary == "" {
		binary = "cjxl"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JXLConverter{binary: binary, timeout: timeout, logger: logger}
}

// Convert transcodes the JPEG at path to a .jxl sibling.
//
// On success the original is deleted and the new path returned; on any
// failure the original path is returned unchanged.
func (c *JXLConverter) Convert(ctx context.Context, path string) string {
	if !isConvertibleJPEG(path) {
		return path
	}

	binary, err := c.resolveBinary()
	if err != nil {
		c.logger.Warn("cjxl binary not found, skipping JXL conversion",
			"binary", c.binary, "error", err)
		return path
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output := strings.TrimSuffix(path, filepath.Ext(path)) + ".jxl"
	cmd := commandContext(ctx, binary, "--lossless_jpeg=1", "--effort=9", path, output)
	if err := cmd.Run(); err != nil {
		c.logger.Warn("cjxl failed, keeping original",
			"path", path, "error", err)
		_ = os.Remove(output)
		return path
	}

	if _, err := os.Stat(output); err != nil {
		c.logger.Warn("cjxl exited cleanly but produced no output, keeping original",
			"path", path)
		return path
	}

	_ = os.Remove(path)
	return output
}

// resolveBinary looks the encoder up once and caches the result for the
// lifetime of the converter.
func (c *JXLConverter) resolveBinary() (string, error) {
	c.resolveOnce.Do(func() {
		c.resolved, c.resolveErr = lookPath(c.binary)
	})
	return c.resolved, c.resolveErr
}

func isConvertibleJPEG(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
