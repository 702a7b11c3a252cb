// Package convert re-encodes still images into a denser lossless
// format using an external encoder binary.
//
// The whole package is an optimisation step: every failure path keeps
// the original file, so enabling conversion can never lose media.
package convert
