package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// Parser evaluates Lua config files with platform detection.
type Parser struct {
	detector platform.Detector
	logger   logging.Logger
}

// NewParser creates a new config parser. A nil detector leaves the
// platform table undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector, logger: logging.Nop()}
}

// WithLogger sets the logger used for parse diagnostics.
func (p *Parser) WithLogger(l logging.Logger) *Parser {
	p.logger = logging.OrNop(l)
	return p
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Path    string
	Message string // User-friendly message
	Detail  string // Raw Lua or validation error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile reads and parses the config at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > MaxConfigSize {
		return nil, &ParseError{Path: path, Message: "config too large", Detail: fmt.Sprintf("limit is %d bytes", MaxConfigSize)}
	}

	for _, finding := range DetectSensitiveData(string(data)) {
		p.logger.Warn("config contains credentials", "path", path, "line", finding.Line, "kind", finding.PatternName, "preview", finding.Preview)
	}

	cfg, err := p.ParseString(ctx, string(data))
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.Path = path
	}
	return cfg, err
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("evaluate config: %w", ctxErr)
		}
		return nil, &ParseError{Message: "Lua error", Detail: err.Error()}
	}

	cfg, err := extractConfig(L)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("config parsed", "root", cfg.Root, "arch", cfg.Arch, "log_level", cfg.LogLevel)
	return cfg, nil
}

// extractConfig reads the global zoop table over Default().
func extractConfig(L *lua.LState) (*Config, error) {
	value := L.GetGlobal(luaGlobalZoop)
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "missing or invalid 'zoop' table",
			Detail:  fmt.Sprintf("expected table, got %s", value.Type()),
		}
	}

	cfg := Default()
	var err error
	field := func(name string, dst *string) {
		if err != nil {
			return
		}
		*dst, err = optionalString(table, name, *dst)
	}
	field(luaFieldRoot, &cfg.Root)
	field(luaFieldGlobal, &cfg.GlobalRoot)
	field(luaFieldLogLevel, &cfg.LogLevel)
	field(luaFieldLogFile, &cfg.LogFile)
	var arch string
	field(luaFieldArch, &arch)
	if err != nil {
		return nil, err
	}
	cfg.Arch = platform.Arch(arch)

	switch dl := table.RawGetString(luaFieldDownload).(type) {
	case *lua.LTable:
		if cfg.Download, err = extractDownload(dl, cfg.Download); err != nil {
			return nil, err
		}
	case *lua.LNilType:
	default:
		return nil, typeError(luaFieldDownload, "table", dl)
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{Message: "config validation failed", Detail: err.Error()}
	}
	return cfg, nil
}

func extractDownload(table *lua.LTable, dl DownloadConfig) (DownloadConfig, error) {
	switch v := table.RawGetString(luaFieldTimeout).(type) {
	case lua.LNumber:
		dl.Timeout = time.Duration(float64(v) * float64(time.Second))
	case lua.LString:
		d, err := time.ParseDuration(string(v))
		if err != nil {
			return dl, &ParseError{Message: "invalid download.timeout", Detail: err.Error()}
		}
		dl.Timeout = d
	case *lua.LNilType:
	default:
		return dl, typeError("download.timeout", "number or duration string", v)
	}

	switch v := table.RawGetString(luaFieldRetries).(type) {
	case lua.LNumber:
		dl.Retries = int(v)
	case *lua.LNilType:
	default:
		return dl, typeError("download.retries", "number", v)
	}

	var err error
	if dl.UserAgent, err = optionalString(table, luaFieldUserAgent, dl.UserAgent); err != nil {
		return dl, err
	}
	if dl.Proxy, err = optionalString(table, luaFieldProxy, dl.Proxy); err != nil {
		return dl, err
	}
	return dl, nil
}

// optionalString returns def when the field is nil. Nil values come from
// platform conditionals such as `platform.is_linux and "x" or nil`.
func optionalString(table *lua.LTable, name, def string) (string, error) {
	switch v := table.RawGetString(name).(type) {
	case lua.LString:
		return string(v), nil
	case *lua.LNilType:
		return def, nil
	default:
		return "", typeError(name, "string", v)
	}
}

func typeError(field, want string, got lua.LValue) error {
	return &ParseError{
		Message: fmt.Sprintf("invalid %s", field),
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode the raw Lua error is shown with its traceback.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}
