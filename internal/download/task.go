package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/avelter/memories-downloader/internal/archive"
	"github.com/avelter/memories-downloader/internal/config"
	"github.com/avelter/memories-downloader/internal/convert"
	httpclient "github.com/avelter/memories-downloader/internal/http"
	ioutils "github.com/avelter/memories-downloader/internal/io"
	"github.com/avelter/memories-downloader/internal/metadata"
	"github.com/avelter/memories-downloader/internal/model"
	"github.com/avelter/memories-downloader/internal/overlay"
)

// services bundles the shared collaborators every task uses. They are
// constructed once per Manager and reused across tasks and attempts;
// all of them are safe for concurrent use.
type services struct {
	client          *httpclient.Client
	resolver        *ioutils.NameResolver
	compositor      *overlay.Compositor
	videoCompositor *overlay.VideoCompositor
	imageMeta       *metadata.ImageWriter
	videoMeta       *metadata.VideoWriter
	converter       *convert.JXLConverter
	logger          *slog.Logger
}

// Outcome is the result of one task: the final file path and byte count
// on success, or one structured error on failure.
type Outcome struct {
	Filename string
	URL      string
	Path     string
	Bytes    int64
	Err      *StructuredError
}

// task is the per-item unit of work: download, classify, extract,
// composite, write metadata, convert. Tasks are independent of each
// other except for filename reservation, which the shared resolver
// serialises.
type task struct {
	memory   *model.Memory
	settings *config.Settings
	services *services
}

func (t *task) run(ctx context.Context) Outcome {
	out := Outcome{
		Filename: t.memory.FileName(),
		URL:      t.memory.DownloadURL,
	}

	path, bytes, err := t.process(ctx)
	if err != nil {
		out.Err = &StructuredError{
			Filename: out.Filename,
			URL:      out.URL,
			Code:     classify(err),
		}
		t.services.logger.Debug("task failed",
			"file", out.Filename, "code", out.Err.Code, "error", err)
		return out
	}

	out.Path = path
	out.Bytes = bytes
	return out
}

// process walks the item through the pipeline. On any failure the
// partially written output file, if one exists, is removed before the
// error is surfaced: the filesystem never keeps a truncated artifact.
func (t *task) process(ctx context.Context) (finalPath string, bytes int64, err error) {
	// Strict-location pre-flight runs before any network call so
	// rejected records cost no bandwidth.
	if t.settings.StrictLocation {
		if _, _, ok := t.memory.Coordinates(); !ok {
			return "", 0, withCode(CodeLocation, errors.New("record has no resolvable coordinates"))
		}
	}

	body, contentType, err := t.services.client.Fetch(ctx, t.memory.DownloadURL)
	if err != nil {
		return "", 0, err
	}

	mediaBytes := body
	ext := t.memory.Extension()
	var overlayPNG []byte

	if archive.IsArchive(contentType, body) {
		media, extractErr := archive.Extract(body, t.settings.ApplyOverlay)
		if extractErr != nil {
			return "", 0, extractErr
		}
		mediaBytes = media.Data
		ext = media.Ext
		overlayPNG = media.Overlay
	}

	path := t.services.resolver.Claim(t.memory.BaseFilename() + ext)

	written := false
	defer func() {
		if err != nil && written {
			_ = os.Remove(path)
		}
	}()

	if ext == ".jpg" {
		path, err = t.processImage(ctx, path, mediaBytes, overlayPNG, &written)
	} else {
		err = t.processVideo(ctx, path, mediaBytes, overlayPNG, &written)
	}
	if err != nil {
		return path, 0, err
	}

	return path, int64(len(body)), nil
}

func (t *task) processImage(ctx context.Context, path string, mediaBytes, overlayPNG []byte, written *bool) (string, error) {
	if overlayPNG != nil {
		composited, err := t.services.compositor.Compose(mediaBytes, overlayPNG)
		if err != nil {
			return path, withCode(CodeOverlay, err)
		}
		mediaBytes = composited
	}

	if err := ioutils.WriteFile(path, mediaBytes); err != nil {
		return path, fmt.Errorf("write image: %w", err)
	}
	*written = true

	if t.settings.WriteMetadata {
		if err := t.services.imageMeta.Write(path, t.memory); err != nil {
			return path, err
		}
	}

	if t.settings.ConvertToJXL {
		// Best-effort: Convert keeps the original on any failure.
		path = t.services.converter.Convert(ctx, path)
	}

	return path, nil
}

func (t *task) processVideo(ctx context.Context, path string, mediaBytes, overlayPNG []byte, written *bool) error {
	if overlayPNG != nil {
		// The compositor writes the output file itself and removes it
		// again when the transcoder fails.
		if err := t.services.videoCompositor.Compose(ctx, mediaBytes, overlayPNG, path); err != nil {
			return withCode(CodeOverlay, err)
		}
		*written = true
	} else {
		if err := ioutils.WriteFile(path, mediaBytes); err != nil {
			return fmt.Errorf("write video: %w", err)
		}
		*written = true
	}

	if t.settings.WriteMetadata {
		if err := t.services.videoMeta.Write(ctx, path, t.memory); err != nil {
			return err
		}
	}

	return nil
}
