// Package config manages application settings.
//
// Settings are persisted as a JSON file. Loading a path that does not
// exist returns DefaultSettings, so the downloader works without any
// configuration file at all.
//
//	settings, err := config.Load("config.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	settings.StrictLocation = true
//	_ = settings.Save("config.json")
package config
