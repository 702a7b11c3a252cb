// Package metadata writes capture-time and GPS metadata into finished
// media files: EXIF blocks for JPEG images, container tags (via a
// stream-copy remux) for MP4 videos.
//
// Both writers go through a temp sibling and an atomic rename; a failed
// write never leaves a truncated file as the final artifact.
package metadata
