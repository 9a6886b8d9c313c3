package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalZoop     = "zoop"
	luaFieldRoot      = "root"
	luaFieldGlobal    = "global_root"
	luaFieldArch      = "arch"
	luaFieldLogLevel  = "log_level"
	luaFieldLogFile   = "log_file"
	luaFieldDownload  = "download"
	luaFieldTimeout   = "timeout"
	luaFieldRetries   = "retries"
	luaFieldUserAgent = "user_agent"
	luaFieldProxy     = "proxy"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "ZOOP_CONFIG"

	// MaxConfigSize bounds the config file read from disk.
	MaxConfigSize = 1 << 20

	// DefaultParseTimeout applies when the context has no deadline.
	DefaultParseTimeout = 5 * time.Second
)
