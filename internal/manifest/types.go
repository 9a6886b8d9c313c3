package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

var jsonNull = []byte("null")

// StringOrArray holds fields that manifests write either as "x" or ["x", "y"].
type StringOrArray []string

// UnmarshalJSON accepts a JSON string or an array of strings.
func (s *StringOrArray) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StringOrArray{v}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	if arr == nil {
		arr = []string{}
	}
	*s = arr
	return nil
}

// MarshalJSON writes a single element as a bare string.
func (s StringOrArray) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// Strings returns the values as a plain slice.
func (s StringOrArray) Strings() []string {
	return []string(s)
}

// BinEntry is one executable to shim: a path relative to the app
// directory, the shim name, and optional fixed arguments.
type BinEntry struct {
	Path  string `json:"path"`
	Alias string `json:"alias"`
	Args  string `json:"args,omitempty"`
}

// BinList decodes "bin": "a.exe", ["a.exe", "b.exe"] and
// [["a.exe", "alias", "--flag"], "b.exe"].
type BinList []BinEntry

// UnmarshalJSON implements the bin grammar.
func (b *BinList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*b = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var path string
		if err := json.Unmarshal(data, &path); err != nil {
			return err
		}
		*b = BinList{newBinEntry(path, "", nil)}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("bin: expected string or array: %w", err)
	}
	out := make(BinList, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var path string
			if err := json.Unmarshal(item, &path); err != nil {
				return fmt.Errorf("bin[%d]: %w", i, err)
			}
			out = append(out, newBinEntry(path, "", nil))
			continue
		}
		var parts []string
		if err := json.Unmarshal(item, &parts); err != nil {
			return fmt.Errorf("bin[%d]: expected string or array of strings: %w", i, err)
		}
		if len(parts) == 0 || parts[0] == "" {
			return fmt.Errorf("bin[%d]: empty entry", i)
		}
		alias := ""
		if len(parts) > 1 {
			alias = parts[1]
		}
		var args []string
		if len(parts) > 2 {
			args = parts[2:]
		}
		out = append(out, newBinEntry(parts[0], alias, args))
	}
	*b = out
	return nil
}

func newBinEntry(path, alias string, args []string) BinEntry {
	if alias == "" {
		base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
		alias = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return BinEntry{Path: path, Alias: alias, Args: strings.Join(args, " ")}
}

// Shortcut is a start menu entry: [target, name, args?, icon?].
type Shortcut struct {
	Target string `json:"target"`
	Name   string `json:"name"`
	Args   string `json:"args,omitempty"`
	Icon   string `json:"icon,omitempty"`
}

// UnmarshalJSON decodes the positional array form.
func (s *Shortcut) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("shortcut: expected array of strings: %w", err)
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("shortcut: need at least target and name, got %d fields", len(parts))
	}
	*s = Shortcut{Target: parts[0], Name: parts[1]}
	if len(parts) > 2 {
		s.Args = parts[2]
	}
	if len(parts) > 3 {
		s.Icon = parts[3]
	}
	return nil
}

// EnvVar is one env_set assignment.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EnvSet keeps env_set entries in document order.
type EnvSet []EnvVar

// UnmarshalJSON decodes a JSON object while preserving key order.
func (e *EnvSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("env_set: expected object")
	}

	out := EnvSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("env_set %q: %w", key, err)
		}
		var value string
		switch v := raw.(type) {
		case string:
			value = v
		case nil:
			value = ""
		case float64, bool:
			value = fmt.Sprint(v)
		default:
			return fmt.Errorf("env_set %q: value must be a string", key)
		}
		out = append(out, EnvVar{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}

// Installer describes an installer or uninstaller directive.
type Installer struct {
	File   string        `json:"file,omitempty"`
	Args   StringOrArray `json:"args,omitempty"`
	Keep   bool          `json:"keep,omitempty"`
	Script StringOrArray `json:"script,omitempty"`
}

// License accepts "MIT" or {"identifier": "MIT", "url": "..."}.
type License struct {
	Identifier string `json:"identifier"`
	URL        string `json:"url,omitempty"`
}

// UnmarshalJSON implements the two license forms.
func (l *License) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &l.Identifier)
	}
	type plain License
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("license: %w", err)
	}
	*l = License(p)
	return nil
}

// PersistEntry maps a path inside the app directory to a path under the
// persist directory. Target equals Source unless renamed.
type PersistEntry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// PersistList decodes "persist": "dir", ["a", "b"] and [["src", "dst"]].
type PersistList []PersistEntry

// UnmarshalJSON implements the persist grammar.
func (p *PersistList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PersistList{{Source: s, Target: s}}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("persist: expected string or array: %w", err)
	}
	out := make(PersistList, 0, len(items))
	for i, item := range items {
		var names StringOrArray
		if err := json.Unmarshal(item, &names); err != nil {
			return fmt.Errorf("persist[%d]: %w", i, err)
		}
		if len(names) == 0 || names[0] == "" {
			return fmt.Errorf("persist[%d]: empty entry", i)
		}
		entry := PersistEntry{Source: names[0], Target: names[0]}
		if len(names) > 1 && names[1] != "" {
			entry.Target = names[1]
		}
		out = append(out, entry)
	}
	*p = out
	return nil
}

// PSModule names a PowerShell module shipped by the app.
type PSModule struct {
	Name string `json:"name"`
}
