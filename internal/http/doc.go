// Package http provides the HTTP client used to fetch media referenced
// by the export manifest.
//
// The client is deliberately small: one Fetch operation returning the
// body and declared content type, with non-success statuses surfaced as
// *StatusError so the download pipeline can classify them.
package http
