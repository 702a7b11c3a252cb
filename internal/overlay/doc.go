// Package overlay recombines the transparent overlay graphics shipped
// alongside export media with the media itself.
//
// Images are composited in memory (decode, resize the overlay if
// needed, alpha-composite, flatten to JPEG). Videos are composited by a
// single pass of the external transcoder, because video re-encoding in
// memory is not practical.
package overlay
