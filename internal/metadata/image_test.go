package metadata

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/avelter/memories-downloader/internal/model"
)

func writeTestJPEG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestMemory(t *testing.T, location string) *model.Memory {
	t.Helper()
	mem, err := model.NewMemory(model.RawRecord{
		Date:      "2023-04-17 10:35:12 UTC",
		MediaType: "Image",
		Location:  location,
	})
	if err != nil {
		t.Fatal(err)
	}
	return mem
}

func flatTags(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	rawExif, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		t.Fatalf("extract exif: %v", err)
	}
	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		t.Fatalf("flatten exif: %v", err)
	}
	byName := make(map[string]interface{}, len(tags))
	for _, tag := range tags {
		byName[tag.TagName] = tag.Value
	}
	return byName
}

func TestImageWriter_Timestamps(t *testing.T) {
	path := writeTestJPEG(t)
	mem := newTestMemory(t, "")

	if err := NewImageWriter().Write(path, mem); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	tags := flatTags(t, path)
	for _, name := range []string{"DateTime", "DateTimeOriginal", "DateTimeDigitized"} {
		value, ok := tags[name].(string)
		if !ok {
			t.Fatalf("%s missing or not a string: %#v", name, tags[name])
		}
		if value != "2023:04:17 10:35:12" {
			t.Errorf("%s = %q, want \"2023:04:17 10:35:12\"", name, value)
		}
	}
}

func TestImageWriter_GPSRoundTrip(t *testing.T) {
	path := writeTestJPEG(t)
	mem := newTestMemory(t, "Latitude, Longitude: 40.712800, -74.006000")

	if err := NewImageWriter().Write(path, mem); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	tags := flatTags(t, path)

	latDMS, ok := tags["GPSLatitude"].([]exifcommon.Rational)
	if !ok {
		t.Fatalf("GPSLatitude missing or wrong type: %#v", tags["GPSLatitude"])
	}
	lonDMS, ok := tags["GPSLongitude"].([]exifcommon.Rational)
	if !ok {
		t.Fatalf("GPSLongitude missing or wrong type: %#v", tags["GPSLongitude"])
	}
	latRef, _ := tags["GPSLatitudeRef"].(string)
	lonRef, _ := tags["GPSLongitudeRef"].(string)

	if latRef != "N" {
		t.Errorf("GPSLatitudeRef = %q, want N", latRef)
	}
	if lonRef != "W" {
		t.Errorf("GPSLongitudeRef = %q, want W", lonRef)
	}

	lat := fromDMS(latDMS, latRef)
	lon := fromDMS(lonDMS, lonRef)
	if math.Abs(lat-40.7128) > 1e-6 {
		t.Errorf("latitude round trip = %v, want 40.7128", lat)
	}
	if math.Abs(lon-(-74.006)) > 1e-6 {
		t.Errorf("longitude round trip = %v, want -74.006", lon)
	}
}

func TestImageWriter_NullIslandSkipsGPS(t *testing.T) {
	path := writeTestJPEG(t)
	mem := newTestMemory(t, "Latitude, Longitude: 0.0, 0.0")

	if err := NewImageWriter().Write(path, mem); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	tags := flatTags(t, path)
	if _, ok := tags["GPSLatitude"]; ok {
		t.Error("GPS block written for a (0,0) location")
	}
}

func TestImageWriter_NoTempLeftBehind(t *testing.T) {
	path := writeTestJPEG(t)
	mem := newTestMemory(t, "")

	if err := NewImageWriter().Write(path, mem); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(TempSibling(path)); !os.IsNotExist(err) {
		t.Error("temp sibling left behind after successful write")
	}
}

func TestImageWriter_NotAJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewImageWriter().Write(path, newTestMemory(t, "")); err == nil {
		t.Fatal("expected error for non-JPEG input")
	}
}

func TestToDMS(t *testing.T) {
	tests := []struct {
		decimal     float64
		wantDegrees uint32
		wantMinutes uint32
	}{
		{40.7128, 40, 42},
		{-74.006, 74, 0},
		{0.5, 0, 30},
	}

	for _, tt := range tests {
		dms := toDMS(tt.decimal)
		if dms[0].Numerator != tt.wantDegrees {
			t.Errorf("toDMS(%v) degrees = %d, want %d", tt.decimal, dms[0].Numerator, tt.wantDegrees)
		}
		if dms[1].Numerator != tt.wantMinutes {
			t.Errorf("toDMS(%v) minutes = %d, want %d", tt.decimal, dms[1].Numerator, tt.wantMinutes)
		}

		ref := "N"
		if tt.decimal < 0 {
			ref = "S"
		}
		back := fromDMS(dms, ref)
		if math.Abs(back-tt.decimal) > 1e-6 {
			t.Errorf("fromDMS(toDMS(%v)) = %v", tt.decimal, back)
		}
	}
}
