// Package config defines the settings shared by the proximity binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Secrets can stay out of the YAML file: Load reads an optional .env file and
// lets PROXIMITY_* environment variables override the matching settings.
package config
