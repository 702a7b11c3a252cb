// Package ffmpeg wraps the external transcoder binaries used for video
// work: probing stream dimensions, stream-copy remuxing with metadata
// tags, and filtered overlay re-encodes.
//
// The package shells out; it holds no transcoding logic of its own.
// Exit code zero is success, anything else fails that invocation only.
package ffmpeg
