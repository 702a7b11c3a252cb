package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// dateLayout is the fixed textual format used by the export manifest.
// All timestamps are UTC.
const dateLayout = "2006-01-02 15:04:05 UTC"

// coordsPattern extracts a "lat, lon" float pair from the free-text
// location field, with or without the "Latitude, Longitude:" prefix.
var coordsPattern = regexp.MustCompile(`(-?\d+\.\d+)\s*,\s*(-?\d+\.\d+)`)

// MediaKind identifies the media type of a Memory.
//
// The set of kinds is fixed and closed: the export only ever contains
// still images (saved as JPEG) and videos (saved as MP4).
type MediaKind int

const (
	// KindImage is a still image, saved with a .jpg extension.
	KindImage MediaKind = iota

	// KindVideo is a video, saved with a .mp4 extension.
	KindVideo
)

// String returns the manifest spelling of the kind.
func (k MediaKind) String() string {
	if k == KindImage {
		return "Image"
	}
	return "Video"
}

// RawRecord is one manifest entry as it appears on disk.
//
// Older exports use "Download Link", newer ones "Media Download Url";
// both are accepted and PreferredURL picks between them.
type RawRecord struct {
	Date             string `json:"Date"`
	DownloadLink     string `json:"Download Link,omitempty"`
	MediaDownloadURL string `json:"Media Download Url,omitempty"`
	MediaType        string `json:"Media Type"`
	Location         string `json:"Location,omitempty"`
}

// PreferredURL returns the download URL for the record, favouring the
// newer "Media Download Url" key.
func (r RawRecord) PreferredURL() string {
	if r.MediaDownloadURL != "" {
		return r.MediaDownloadURL
	}
	return r.DownloadLink
}

// Memory is one parsed manifest entry.
//
// Memory is immutable after construction and is never written back to
// the manifest; the manifest only ever shrinks.
type Memory struct {
	// CapturedAt is the capture timestamp, always UTC.
	CapturedAt time.Time

	// DownloadURL is the URL the media is fetched from.
	DownloadURL string

	// Kind is the media type (image or video).
	Kind MediaKind

	// LocationText is the raw location string from the manifest.
	// Empty when the record carries no location.
	LocationText string

	latitude  float64
	longitude float64
	located   bool
}

// NewMemory parses a raw manifest record into a Memory.
//
// A record whose date does not parse is a hard error; such records are
// reported as failures rather than silently defaulted.
func NewMemory(raw RawRecord) (*Memory, error) {
	capturedAt, err := time.ParseInLocation(dateLayout, raw.Date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", raw.Date, err)
	}

	m := &Memory{
		CapturedAt:   capturedAt,
		DownloadURL:  raw.PreferredURL(),
		Kind:         KindVideo,
		LocationText: raw.Location,
	}
	if raw.MediaType == "Image" {
		m.Kind = KindImage
	}

	if match := coordsPattern.FindStringSubmatch(raw.Location); match != nil {
		lat, latErr := strconv.ParseFloat(match[1], 64)
		lon, lonErr := strconv.ParseFloat(match[2], 64)
		if latErr == nil && lonErr == nil {
			m.latitude = lat
			m.longitude = lon
			m.located = true
		}
	}

	return m, nil
}

// Coordinates returns the parsed latitude and longitude.
//
// ok is false when the record has no parsable location or when the pair
// is exactly (0, 0), which the export uses as a null coordinate.
func (m *Memory) Coordinates() (lat, lon float64, ok bool) {
	if !m.located || (m.latitude == 0 && m.longitude == 0) {
		return 0, 0, false
	}
	return m.latitude, m.longitude, true
}

// BaseFilename returns the capture time formatted as a filesystem-safe
// name, without extension.
func (m *Memory) BaseFilename() string {
	return m.CapturedAt.Format("2006-01-02_15-04-05")
}

// Extension returns the output file extension for the media kind.
func (m *Memory) Extension() string {
	if m.Kind == KindImage {
		return ".jpg"
	}
	return ".mp4"
}

// FileName returns the default output filename including extension.
func (m *Memory) FileName() string {
	return m.BaseFilename() + m.Extension()
}

// ExifTimestamp returns the capture time in EXIF DateTime format
// (colon-separated date).
func (m *Memory) ExifTimestamp() string {
	return m.CapturedAt.Format("2006:01:02 15:04:05")
}

// ContainerTimestamp returns the capture time formatted for the MP4
// container creation_time tag.
func (m *Memory) ContainerTimestamp() string {
	return m.CapturedAt.Format("2006-01-02T15:04:05")
}
