package keymap

import (
	"errors"
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xkb(c evdev.EvCode) uint32 { return uint32(c) + EvdevOffset }

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		id   string
		want error
	}{
		{"zz", ErrUnknownLayout},
		{"US", ErrMalformedLayout},
		{"us,", ErrMalformedLayout},
		{"us de", ErrMalformedLayout},
		{"us,de,fr,gb,us", ErrMalformedLayout},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := Compile(tt.id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.id, ce.Layout)
			assert.Contains(t, err.Error(), tt.id)
		})
	}
}

func TestEmptyVariantAccepted(t *testing.T) {
	km, err := Compile("de()")
	require.NoError(t, err)
	assert.Equal(t, []string{"de"}, km.Groups())
}

func TestLayoutDifferences(t *testing.T) {
	tests := []struct {
		layout string
		code   evdev.EvCode
		level  int
		want   Keysym
	}{
		{"us", evdev.KEY_Y, 0, 'y'},
		{"de", evdev.KEY_Y, 0, 'z'},
		{"de", evdev.KEY_Z, 0, 'y'},
		{"de", evdev.KEY_Q, 2, '@'},
		{"de", evdev.KEY_E, 2, KeyEuroSign},
		{"de", evdev.KEY_SEMICOLON, 0, 0xf6},
		{"fr", evdev.KEY_Q, 0, 'a'},
		{"fr", evdev.KEY_SEMICOLON, 0, 'm'},
		{"fr", evdev.KEY_1, 0, '&'},
		{"fr", evdev.KEY_1, 1, '1'},
		{"gb", evdev.KEY_3, 1, 0xa3},
		{"us", evdev.KEY_3, 1, '#'},
		{"us", evdev.KEY_RIGHTALT, 0, KeyAltR},
		{"gb", evdev.KEY_RIGHTALT, 0, KeyLevel3},
		{"us", evdev.KEY_ESC, 0, KeyEscape},
		{"us", evdev.KEY_F12, 0, KeyF(12)},
	}
	for _, tt := range tests {
		km, err := Compile(tt.layout)
		require.NoError(t, err)
		assert.Equal(t, []Keysym{tt.want}, km.KeySyms(xkb(tt.code), 0, tt.level), "%s %d level %d", tt.layout, tt.code, tt.level)
	}
}

func TestKeySymsOutOfRange(t *testing.T) {
	km, err := Compile("us")
	require.NoError(t, err)
	assert.Nil(t, km.KeySyms(xkb(evdev.KEY_A), 0, 5))
	assert.Nil(t, km.KeySyms(0, 0, 0))
	assert.Equal(t, 0, km.NumLevels(0, 0))
	assert.Equal(t, 2, km.NumLevels(xkb(evdev.KEY_A), 0))
}

func TestGroupsFallBackToFirst(t *testing.T) {
	km, err := Compile("us,de")
	require.NoError(t, err)
	assert.Equal(t, []string{"us", "de"}, km.Groups())
	assert.Equal(t, []Keysym{'y'}, km.KeySyms(xkb(evdev.KEY_Y), 0, 0))
	assert.Equal(t, []Keysym{'z'}, km.KeySyms(xkb(evdev.KEY_Y), 1, 0))
	assert.Equal(t, []Keysym{'y'}, km.KeySyms(xkb(evdev.KEY_Y), 7, 0))
}

func TestKeycodesSorted(t *testing.T) {
	km, err := Compile("us")
	require.NoError(t, err)
	codes := km.Keycodes()
	require.NotEmpty(t, codes)
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
	assert.GreaterOrEqual(t, codes[0], uint32(EvdevOffset))
}

func TestLookup(t *testing.T) {
	km, err := Compile("us")
	require.NoError(t, err)

	p, ok := km.Lookup('A')
	require.True(t, ok)
	assert.Equal(t, Position{Keycode: xkb(evdev.KEY_A), Group: 0, Level: 1}, p)

	p, ok = km.Lookup('<')
	require.True(t, ok)
	assert.Equal(t, xkb(evdev.KEY_COMMA), p.Keycode)

	_, ok = km.Lookup(KeyEuroSign)
	assert.False(t, ok)
}
