// Package manifest persists the JSON-backed queue of pending media
// records.
//
// The manifest file is the only durable state the downloader keeps.
// Each successful removal is a commit point: if the process dies right
// after, the removed item will not be fetched again on the next run.
//
//	store := manifest.NewStore("memories_history.json", logger)
//	records, err := store.LoadPending()
//	...
//	_ = store.Remove(record.PreferredURL())
package manifest
