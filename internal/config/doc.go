// Package config loads lector's TOML configuration.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/lector/config.toml
//  3. If the file doesn't exist, use the defaults
//  4. If the file exists but a key is missing or empty, use its default
//  5. If LECTOR_API_BASE is set, it replaces api_base
//
// # Keys
//
//	api_base         ""                        empty means same origin
//	origin           "http://127.0.0.1:5000"   the "same origin" for a terminal client
//	probe_timeout    "4s"                      per-candidate health probe
//	request_timeout  "10s"                     per API call
//	max_upload_mb    16
//	state_dir        "~/.local/share/lector"   log file, cookies, preferences
//	log_level        "info"
//	poll_interval    "15s"                     results refresh in the TUI
//
// Durations use Go syntax ("500ms", "2m"). Paths beginning with ~ are expanded
// and made absolute.
//
// # Empty API Base
//
// An empty api_base is meaningful: lector talks to Origin directly and does
// not probe any fallback endpoints. LECTOR_API_BASE set to the empty string
// forces this even when the file names a base.
package config
