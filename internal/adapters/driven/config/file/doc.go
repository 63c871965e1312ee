// Package file provides the TOML configuration file adapter.
//
// The file holds defaults for command-line flags:
//
//	[backup]
//	type = "https"
//	mirror = true
//	workers = 4
//	prefix = ""
//	suffix = ".git"
//
//	[git]
//	args = ["--no-tags"]
//
//	[github]
//	api_url = "https://github.example.com/"
//
// Tables are flattened to dot-notation keys, e.g. "backup.type".
package file
