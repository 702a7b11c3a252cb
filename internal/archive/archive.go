package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// zipMagic is the ZIP local-file-header signature ("PK\x03\x04").
var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// ErrMalformed reports an archive that could not be opened.
var ErrMalformed = errors.New("archive malformed")

// ErrNoMedia reports an archive that contains no usable media entry.
var ErrNoMedia = errors.New("archive contains no media")

// IsArchive decides whether a downloaded response is a ZIP archive.
//
// The declared Content-Type header wins: any value containing "zip"
// (case-insensitive) classifies as archive even if the bytes disagree.
// Otherwise the first four bytes are checked for the ZIP magic number.
// Pure function, no I/O.
func IsArchive(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "zip") {
		return true
	}
	return len(body) >= len(zipMagic) && bytes.Equal(body[:len(zipMagic)], zipMagic)
}

// Media is the result of extracting an archive: the media bytes, the
// extension they should be saved under, and the overlay graphic when one
// was requested and present.
type Media struct {
	Data    []byte
	Ext     string
	Overlay []byte
}

// Extract scans the archive once and pulls out the media entry plus,
// when wantOverlay is set, the first PNG overlay.
//
// Entries are classified by filename suffix. When an archive carries
// both a JPG and an MP4 the image wins; this mirrors the export format,
// where the MP4 in an image archive is an auxiliary rendering.
func Extract(archiveBytes []byte, wantOverlay bool) (*Media, error) {
	reader, err := zip.NewReader(bytes.NewReader(archiveBytes), int64(len(archiveBytes)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var imageEntry, videoEntry, overlayEntry *zip.File
	for _, entry := range reader.File {
		name := strings.ToLower(entry.Name)
		switch {
		case strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg"):
			if imageEntry == nil {
				imageEntry = entry
			}
		case strings.HasSuffix(name, ".mp4"):
			if videoEntry == nil {
				videoEntry = entry
			}
		case strings.HasSuffix(name, ".png"):
			if overlayEntry == nil {
				overlayEntry = entry
			}
		}
	}

	media := &Media{}
	switch {
	case imageEntry != nil:
		media.Ext = ".jpg"
		if media.Data, err = readEntry(imageEntry); err != nil {
			return nil, err
		}
	case videoEntry != nil:
		media.Ext = ".mp4"
		if media.Data, err = readEntry(videoEntry); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoMedia
	}

	if wantOverlay && overlayEntry != nil {
		if media.Overlay, err = readEntry(overlayEntry); err != nil {
			return nil, err
		}
	}

	return media, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMalformed, entry.Name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrMalformed, entry.Name, err)
	}
	return buf.Bytes(), nil
}
