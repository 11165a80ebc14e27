// Package layout decides which keyboard layout the decoder compiles.
//
// Resolution is a fold over an ordered list of sources: the first source
// that yields a value wins, and when none does the result is Auto, which
// lets the keymap fall back to its built-in default.
package layout

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Auto is the empty layout identifier: use system defaults.
const Auto = ""

const (
	DefaultEnv  = "XKB_DEFAULT_LAYOUT"
	DefaultFile = "/etc/default/keyboard"
	DefaultKey  = "XKBLAYOUT"
)

// Source tries to produce a layout identifier. ok is false when the source
// has nothing to offer; that is never an error.
type Source interface {
	Name() string
	Lookup() (layout string, ok bool)
}

// Env reads an override variable. A variable that is set wins even if it
// is set to the empty string.
type Env struct {
	Var string
}

func (e Env) Name() string { return "env:" + e.Var }

func (e Env) Lookup() (string, bool) {
	return os.LookupEnv(e.Var)
}

// File scans a line-oriented KEY = value file and returns the value of the
// first line assigning Key. Surrounding whitespace and quotes are dropped.
// An absent or unreadable file yields nothing.
type File struct {
	Path string
	Key  string
	Log  *slog.Logger
}

func (f File) Name() string { return "file:" + f.Path }

func (f File) Lookup() (string, bool) {
	fh, err := os.Open(f.Path)
	if err != nil {
		f.logger().Debug("layout file unavailable", "path", f.Path, "err", err)
		return "", false
	}
	defer fh.Close()

	re := assignment(f.Key)
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		m := re.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		if v := unquote(m[1]); v != "" {
			return v, true
		}
	}
	if err := scanner.Err(); err != nil {
		f.logger().Debug("layout file read failed", "path", f.Path, "err", err)
	}
	return "", false
}

func (f File) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}

// Static always yields its value. Used for an explicit layout from the
// command line or config.
type Static struct {
	Layout string
}

func (s Static) Name() string { return "static" }

func (s Static) Lookup() (string, bool) { return s.Layout, true }

func assignment(key string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*` + regexp.QuoteMeta(key) + `\s*=\s*(.*?)\s*$`)
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			v = strings.TrimSpace(v[1 : len(v)-1])
		}
	}
	return v
}

// Result is the outcome of a resolution. Source is empty when the
// fallback was used.
type Result struct {
	Layout string
	Source string
}

func (r Result) String() string {
	if r.Source == "" {
		return "auto (no source matched)"
	}
	l := r.Layout
	if l == Auto {
		l = "auto"
	}
	return fmt.Sprintf("%s (from %s)", l, r.Source)
}

// Resolve returns the first value any source yields, or Auto.
func Resolve(sources ...Source) Result {
	for _, s := range sources {
		if v, ok := s.Lookup(); ok {
			return Result{Layout: v, Source: s.Name()}
		}
	}
	return Result{Layout: Auto}
}

// Defaults returns the standard chain: the override variable, then the
// system keyboard file.
func Defaults(log *slog.Logger) []Source {
	return []Source{
		Env{Var: DefaultEnv},
		File{Path: DefaultFile, Key: DefaultKey, Log: log},
	}
}
