// Package archive classifies downloaded responses as raw media or ZIP
// archives and extracts media plus overlay graphics from the latter.
//
// Some export items arrive as a ZIP holding the media file and a
// transparent PNG overlay that was drawn on top of it; Extract pulls
// both out in a single scan of the entry list.
package archive
