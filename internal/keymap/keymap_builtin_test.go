//go:build !(cgo && xkbcommon)

package keymap

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLayouts(t *testing.T) {
	assert.False(t, SystemKeymaps)
	assert.Equal(t, []string{"us", "gb", "de", "fr"}, Names())
	for _, id := range Names() {
		_, err := Compile(id)
		assert.NoError(t, err, id)
	}
}

func TestCompileEmptyUsesDefault(t *testing.T) {
	km, err := Compile("")
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultLayout}, km.Groups())
	assert.Equal(t, []Keysym{'a'}, km.KeySyms(xkb(evdev.KEY_A), 0, 0))
}

func TestLayoutsOutsideTablesNeedSystemKeymaps(t *testing.T) {
	for _, id := range []string{"it", "es", "us,ru", "us(intl)", "us(dvorak)"} {
		_, err := Compile(id)
		assert.ErrorIs(t, err, ErrUnknownLayout, id)
	}
}
