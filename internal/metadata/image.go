package metadata

import (
	"bytes"
	"fmt"
	"math"
	"os"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"

	"github.com/avelter/memories-downloader/internal/model"
)

// secondsDenominator gives the GPS seconds rational six decimal digits
// of precision, so decimal degrees round-trip within ~0.11 m.
const secondsDenominator = 1_000_000

// ImageWriter injects capture-time and GPS metadata into JPEG files.
//
// The writer builds the minimal EXIF block the record warrants: the
// three standard DateTime fields always, and a GPS IFD only when the
// record carries a real, non-(0,0) coordinate pair. The JPEG pixel data
// is not re-encoded; only the metadata segment changes.
type ImageWriter struct{}

// NewImageWriter creates an ImageWriter.
func NewImageWriter() *ImageWriter {
	return &ImageWriter{}
}

// Write rewrites the JPEG at path with metadata from mem.
//
// The file goes through a temp sibling plus rename, so a failure can
// never leave a half-written image as the final artifact.
func (w *ImageWriter) Write(path string, mem *model.Memory) error {
	parser := jpegstructure.NewJpegMediaParser()
	mediaContext, err := parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse jpeg: %w", err)
	}
	segments := mediaContext.(*jpegstructure.SegmentList)

	rootIb, err := segments.ConstructExifBuilder()
	if err != nil {
		// No existing EXIF; start from an empty root IFD.
		mapping, mapErr := exifcommon.NewIfdMappingWithStandard()
		if mapErr != nil {
			return fmt.Errorf("build ifd mapping: %w", mapErr)
		}
		rootIb = exif.NewIfdBuilder(mapping, exif.NewTagIndex(),
			exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	}

	timestamp := mem.ExifTimestamp()
	if err := rootIb.SetStandardWithName("DateTime", timestamp); err != nil {
		return fmt.Errorf("set DateTime: %w", err)
	}

	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return fmt.Errorf("create exif ifd: %w", err)
	}
	if err := exifIb.SetStandardWithName("DateTimeOriginal", timestamp); err != nil {
		return fmt.Errorf("set DateTimeOriginal: %w", err)
	}
	if err := exifIb.SetStandardWithName("DateTimeDigitized", timestamp); err != nil {
		return fmt.Errorf("set DateTimeDigitized: %w", err)
	}

	if lat, lon, ok := mem.Coordinates(); ok {
		if err := setGPS(rootIb, lat, lon); err != nil {
			return err
		}
	}

	if err := segments.SetExif(rootIb); err != nil {
		return fmt.Errorf("attach exif: %w", err)
	}

	var buf bytes.Buffer
	if err := segments.Write(&buf); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	tmp := TempSibling(path)
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write jpeg: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace jpeg: %w", err)
	}
	return nil
}

// setGPS fills the GPS IFD with DMS rationals and hemisphere refs.
func setGPS(rootIb *exif.IfdBuilder, lat, lon float64) error {
	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return fmt.Errorf("create gps ifd: %w", err)
	}

	fields := []struct {
		name  string
		value interface{}
	}{
		{"GPSVersionID", []byte{2, 3, 0, 0}},
		{"GPSLatitudeRef", hemisphere(lat, "N", "S")},
		{"GPSLatitude", toDMS(lat)},
		{"GPSLongitudeRef", hemisphere(lon, "E", "W")},
		{"GPSLongitude", toDMS(lon)},
	}
	for _, f := range fields {
		if err := gpsIb.SetStandardWithName(f.name, f.value); err != nil {
			return fmt.Errorf("set %s: %w", f.name, err)
		}
	}
	return nil
}

// toDMS decomposes a decimal degree value into degree/minute/second
// rationals: degrees and minutes integral, seconds carrying the
// remaining fraction at secondsDenominator precision.
func toDMS(decimal float64) []exifcommon.Rational {
	abs := math.Abs(decimal)
	degrees := math.Floor(abs)
	minutesF := (abs - degrees) * 60
	minutes := math.Floor(minutesF)
	seconds := (minutesF - minutes) * 60

	return []exifcommon.Rational{
		{Numerator: uint32(degrees), Denominator: 1},
		{Numerator: uint32(minutes), Denominator: 1},
		{Numerator: uint32(math.Round(seconds * secondsDenominator)), Denominator: secondsDenominator},
	}
}

// fromDMS reassembles a decimal degree value from DMS rationals and the
// hemisphere reference.
func fromDMS(dms []exifcommon.Rational, ref string) float64 {
	if len(dms) != 3 {
		return 0
	}
	value := float64(dms[0].Numerator)/float64(dms[0].Denominator) +
		float64(dms[1].Numerator)/float64(dms[1].Denominator)/60 +
		float64(dms[2].Numerator)/float64(dms[2].Denominator)/3600
	if ref == "S" || ref == "W" {
		value = -value
	}
	return value
}

func hemisphere(decimal float64, positive, negative string) string {
	if decimal >= 0 {
		return positive
	}
	return negative
}
