package convert

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if output := os.Getenv("CJXL_CREATE_OUTPUT"); output != "" {
		_ = os.WriteFile(output, []byte("jxl-data"), 0644)
	}
	if os.Getenv("CJXL_HELPER_MODE") == "fail" {
		os.Exit(1)
	}
	os.Exit(0)
}

// stubCJXL reroutes both the binary lookup and the command execution.
func stubCJXL(t *testing.T, mode string, createOutput bool) *[]string {
	t.Helper()
	var captured []string

	originalLook := lookPath
	lookPath = func(name string) (string, error) {
		return "/stub/" + name, nil
	}

	originalCommand := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		env := append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "CJXL_HELPER_MODE="+mode)
		if createOutput {
			env = append(env, "CJXL_CREATE_OUTPUT="+args[len(args)-1])
		}
		cmd.Env = env
		return cmd
	}

	t.Cleanup(func() {
		lookPath = originalLook
		commandContext = originalCommand
	})
	return &captured
}

func writeJPEG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, []byte("jpeg-data"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvert_Success(t *testing.T) {
	captured := stubCJXL(t, "success", true)
	conv := NewJXLConverter("cjxl", time.Minute, nil)
	path := writeJPEG(t)

	result := conv.Convert(context.Background(), path)

	want := filepath.Join(filepath.Dir(path), "photo.jxl")
	if result != want {
		t.Errorf("Convert returned %q, want %q", result, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original JPEG not deleted after successful conversion")
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("converted file missing: %v", err)
	}

	args := *captured
	if len(args) != 4 || args[0] != "--lossless_jpeg=1" || args[1] != "--effort=9" {
		t.Errorf("unexpected cjxl args: %v", args)
	}
}

func TestConvert_NonZeroExitKeepsOriginal(t *testing.T) {
	stubCJXL(t, "fail", false)
	conv := NewJXLConverter("cjxl", time.Minute, nil)
	path := writeJPEG(t)

	if result := conv.Convert(context.Background(), path); result != path {
		t.Errorf("Convert returned %q, want original %q", result, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("original deleted despite failure: %v", err)
	}
}

func TestConvert_MissingBinaryKeepsOriginal(t *testing.T) {
	original := lookPath
	lookPath = func(name string) (string, error) {
		return "", errors.New("executable file not found")
	}
	t.Cleanup(func() { lookPath = original })

	conv := NewJXLConverter("cjxl", time.Minute, nil)
	path := writeJPEG(t)

	if result := conv.Convert(context.Background(), path); result != path {
		t.Errorf("Convert returned %q, want original", result)
	}
}

func TestConvert_NonJPEGUntouched(t *testing.T) {
	conv := NewJXLConverter("cjxl", time.Minute, nil)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	if result := conv.Convert(context.Background(), path); result != path {
		t.Errorf("Convert returned %q for a video, want the input", result)
	}
}

func TestConvert_MissingFileUntouched(t *testing.T) {
	conv := NewJXLConverter("cjxl", time.Minute, nil)
	path := filepath.Join(t.TempDir(), "gone.jpg")

	if result := conv.Convert(context.Background(), path); result != path {
		t.Errorf("Convert returned %q for a missing file, want the input", result)
	}
}
