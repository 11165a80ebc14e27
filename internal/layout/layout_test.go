package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEnv = "SEATKEYS_TEST_LAYOUT"

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "keyboard")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestEnvWinsOverFile(t *testing.T) {
	t.Setenv(testEnv, "de")
	p := writeFile(t, "KEYBOARD-LAYOUT = fr\n")

	r := Resolve(Env{Var: testEnv}, File{Path: p, Key: "KEYBOARD-LAYOUT"})
	assert.Equal(t, "de", r.Layout)
	assert.Equal(t, "env:"+testEnv, r.Source)
}

func TestEnvSetEmptyStillWins(t *testing.T) {
	t.Setenv(testEnv, "")
	p := writeFile(t, "KEYBOARD-LAYOUT = fr\n")

	r := Resolve(Env{Var: testEnv}, File{Path: p, Key: "KEYBOARD-LAYOUT"})
	assert.Equal(t, Auto, r.Layout)
	assert.Equal(t, "env:"+testEnv, r.Source)
}

func TestFallbackWhenNothingMatches(t *testing.T) {
	t.Setenv(testEnv, "")
	require.NoError(t, os.Unsetenv(testEnv))

	r := Resolve(Env{Var: testEnv}, File{Path: filepath.Join(t.TempDir(), "missing"), Key: "KEYBOARD-LAYOUT"})
	assert.Equal(t, Auto, r.Layout)
	assert.Empty(t, r.Source)
}

func TestFileWhitespaceTolerant(t *testing.T) {
	p := writeFile(t, "# keyboard\nMODEL=pc105\n  KEYBOARD-LAYOUT =  us  \nOTHER=1\n")

	v, ok := File{Path: p, Key: "KEYBOARD-LAYOUT"}.Lookup()
	require.True(t, ok)
	assert.Equal(t, "us", v)
}

func TestFileFirstMatchWins(t *testing.T) {
	p := writeFile(t, "KEYBOARD-LAYOUT=gb\nKEYBOARD-LAYOUT=de\n")

	v, ok := File{Path: p, Key: "KEYBOARD-LAYOUT"}.Lookup()
	require.True(t, ok)
	assert.Equal(t, "gb", v)
}

func TestFileNoMatchingLine(t *testing.T) {
	p := writeFile(t, "XKBMODEL=pc105\nXKBVARIANT=\n")

	r := Resolve(File{Path: p, Key: "XKBLAYOUT"})
	assert.Equal(t, Auto, r.Layout)
}

func TestFileQuotedValue(t *testing.T) {
	p := writeFile(t, "XKBMODEL=\"pc105\"\nXKBLAYOUT=\"de\"\n")

	v, ok := File{Path: p, Key: "XKBLAYOUT"}.Lookup()
	require.True(t, ok)
	assert.Equal(t, "de", v)
}

func TestFileKeyIsNotPrefixMatched(t *testing.T) {
	p := writeFile(t, "XKBLAYOUT_EXTRA=fr\nXKBLAYOUT=us\n")

	v, ok := File{Path: p, Key: "XKBLAYOUT"}.Lookup()
	require.True(t, ok)
	assert.Equal(t, "us", v)
}

func TestStaticShortCircuits(t *testing.T) {
	t.Setenv(testEnv, "de")

	r := Resolve(Static{Layout: "fr"}, Env{Var: testEnv})
	assert.Equal(t, "fr", r.Layout)
	assert.Equal(t, "static", r.Source)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "auto (no source matched)", Result{}.String())
	assert.Equal(t, "us (from static)", Result{Layout: "us", Source: "static"}.String())
}
