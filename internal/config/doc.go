// Package config loads the user configuration of zoop.
//
// The configuration is a Lua file evaluated in a sandboxed gopher-lua VM.
// It must assign a global zoop table:
//
//	zoop = {
//	  root = "~/scoop",
//	  global_root = "/opt/scoop",
//	  arch = platform.is_arm64 and "arm64" or nil,
//	  log_level = "info",
//	  log_file = "~/.local/state/zoop/zoop.log",
//	  download = {
//	    timeout = 60,          -- seconds, or a duration string like "90s"
//	    retries = 3,           -- -1 disables retrying
//	    user_agent = "zoop",
//	    proxy = "http://proxy.local:3128",
//	  },
//	}
//
// The read-only platform table (os, arch, is_windows, is_linux,
// is_macos, is_64bit, is_arm64) is available to branch on the host.
//
// The sandbox removes os, io, require, dofile, loadfile, load,
// loadstring and debug. Parsing is bounded by a timeout and a size
// limit. A missing file yields Default().
package config
