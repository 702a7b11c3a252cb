package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// CLI wraps the external transcoder binaries.
//
// All invocations run under a caller-supplied timeout; a non-zero exit
// or a timeout fails only the invocation, never the whole run.
type CLI struct {
	ffmpeg  string
	ffprobe string
}

// Option configures the CLI wrapper.
type Option func(*CLI)

// WithFFmpeg overrides the default ffmpeg binary name.
func WithFFmpeg(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.ffmpeg = binary
		}
	}
}

// WithFFprobe overrides the default ffprobe binary name.
func WithFFprobe(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.ffprobe = binary
		}
	}
}

// NewCLI constructs a CLI wrapper using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ProbeDimensions returns the pixel dimensions of the first video
// stream in the file at path.
func (c *CLI) ProbeDimensions(ctx context.Context, path string) (width, height int, err error) {
	if path == "" {
		return 0, 0, errors.New("video path required")
	}

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		path,
	}
	cmd := commandContext(ctx, c.ffprobe, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, fmt.Errorf("probe dimensions: %w (%s)", err, tail(stderr.String()))
	}

	fields := strings.Split(strings.TrimSpace(stdout.String()), ",")
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("probe dimensions: unexpected output %q", stdout.String())
	}
	width, werr := strconv.Atoi(strings.TrimSpace(fields[0]))
	height, herr := strconv.Atoi(strings.TrimSpace(fields[1]))
	if werr != nil || herr != nil {
		return 0, 0, fmt.Errorf("probe dimensions: unexpected output %q", stdout.String())
	}

	return width, height, nil
}

// Run invokes ffmpeg with the given arguments under timeout.
//
// A timed-out invocation surfaces as an error wrapping
// context.DeadlineExceeded.
func (c *CLI) Run(ctx context.Context, timeout time.Duration, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := commandContext(ctx, c.ffmpeg, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg: %w (%s)", err, tail(stderr.String()))
	}
	return nil
}

// tail returns the last line of transcoder output, which is where
// ffmpeg puts the reason it failed.
func tail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
