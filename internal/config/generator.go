package config

import (
	"bytes"
	"fmt"
	"strings"
)

// Generator renders a Config as Lua that Parser reads back.
type Generator struct {
	indent string
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{indent: "  "}
}

// Generate renders cfg. Empty fields are omitted.
func (g *Generator) Generate(cfg *Config) string {
	var buf bytes.Buffer
	buf.WriteString("zoop = {\n")

	g.writeString(&buf, 1, luaFieldRoot, cfg.Root)
	g.writeString(&buf, 1, luaFieldGlobal, cfg.GlobalRoot)
	g.writeString(&buf, 1, luaFieldArch, string(cfg.Arch))
	g.writeString(&buf, 1, luaFieldLogLevel, cfg.LogLevel)
	g.writeString(&buf, 1, luaFieldLogFile, cfg.LogFile)

	dl := cfg.Download
	buf.WriteString(g.indent + luaFieldDownload + " = {\n")
	fmt.Fprintf(&buf, "%s%s = %s,\n", g.pad(2), luaFieldTimeout, g.quoteLuaString(dl.Timeout.String()))
	fmt.Fprintf(&buf, "%s%s = %d,\n", g.pad(2), luaFieldRetries, dl.Retries)
	g.writeString(&buf, 2, luaFieldUserAgent, dl.UserAgent)
	g.writeString(&buf, 2, luaFieldProxy, dl.Proxy)
	buf.WriteString(g.indent + "},\n")

	buf.WriteString("}\n")
	return buf.String()
}

func (g *Generator) pad(level int) string {
	return strings.Repeat(g.indent, level)
}

func (g *Generator) writeString(buf *bytes.Buffer, level int, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(buf, "%s%s = %s,\n", g.pad(level), key, g.quoteLuaString(value))
}

// quoteLuaString produces a Lua 5.1 string literal. Control bytes use
// three-digit decimal escapes so a following digit cannot extend them.
func (g *Generator) quoteLuaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\%03d`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
