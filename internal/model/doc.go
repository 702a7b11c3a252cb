// Package model defines the Memory record parsed from a memories export
// manifest.
//
// A Memory is constructed from one raw manifest entry and is immutable
// afterwards. All derived values (output filename, extension, metadata
// timestamp variants, coordinates) are computed from the capture time and
// location text.
//
// # Basic Usage
//
//	raw := model.RawRecord{
//	    Date:      "2023-04-17 10:35:12 UTC",
//	    MediaType: "Image",
//	    Location:  "Latitude, Longitude: 60.198174, 24.927795",
//	}
//	mem, err := model.NewMemory(raw)
//	if err != nil {
//	    // the date did not parse; the record is unusable
//	}
//	fmt.Println(mem.FileName()) // "2023-04-17_10-35-12.jpg"
package model
