package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresousadotpt/seatkeys/internal/dispatch"
	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/input"
	"github.com/andresousadotpt/seatkeys/internal/keymap"
)

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := LoadAppConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadAppConfigFile(t *testing.T) {
	dir := t.TempDir()
	data := "layout: de\nsession: direct\ntick: 5ms\nduration: 2s\nhotplug: false\nstop_key: q\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(data), 0644))

	cfg, err := LoadAppConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Layout)
	assert.Equal(t, "direct", cfg.Session)
	assert.Equal(t, 5*time.Millisecond, cfg.Tick)
	assert.Equal(t, 2*time.Second, cfg.Duration)
	assert.False(t, cfg.Hotplug)
	assert.Equal(t, "q", cfg.StopKey)
	assert.Equal(t, dispatch.DisciplineReactor, cfg.Discipline, "unset keys keep defaults")
}

func TestLoadAppConfigRejectsBadValues(t *testing.T) {
	for _, data := range []string{
		"session: magic\n",
		"discipline: threads\n",
		"stop_key: NotAKey\n",
		"tick: 0s\n",
		"layout: [\n",
	} {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(data), 0644))
		_, err := LoadAppConfig(dir)
		assert.Error(t, err, data)
	}
}

func TestEmbeddedDefaultsMatchDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, initConfig(dir, &out))
	assert.Contains(t, out.String(), "created config.yml")

	cfg, err := LoadAppConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)

	out.Reset()
	require.NoError(t, initConfig(dir, &out))
	assert.Contains(t, out.String(), "skip config.yml")
}

func TestLayoutSources(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.Len(t, cfg.LayoutSources(nil), 2)

	cfg.Layout = "fr"
	sources := cfg.LayoutSources(nil)
	require.Len(t, sources, 3)
	assert.Equal(t, "static", sources[0].Name())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	o := event.Origin{Seat: "seat0", Device: "/dev/input/event3"}
	key := dispatch.DecodedKey{
		Keyboard: event.Keyboard{Origin: o, Key: 30, State: event.KeyPressed},
		Keysyms:  []keymap.Keysym{keymap.FromRune('a')},
		Text:     "a",
	}
	assert.Equal(t, `keyboard                 /dev/input/event3    key 30 pressed [a] "a"`, describe(key))
	assert.Equal(t, "pointer-motion           /dev/input/event3    dx 3 dy -1",
		describe(event.PointerMotion{Origin: o, DX: 3, DY: -1}))
	assert.Equal(t, "seat-changed             seat0                inactive",
		describe(event.SeatChanged{Seat: "seat0"}))
	assert.Equal(t, "touch-frame              /dev/input/event3", describe(event.TouchFrame{Origin: o}))
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--config-dir", t.TempDir()}, args...))
	require.NoError(t, cmd.Execute(), errOut.String())
	return out.String()
}

func TestCommands(t *testing.T) {
	t.Setenv("XKB_DEFAULT_LAYOUT", "gb")

	assert.Equal(t, "seatkeys "+version+"\n", execute(t, "version"))
	assert.Equal(t, "layout: gb (from env:XKB_DEFAULT_LAYOUT)\ngroups: gb\n", execute(t, "layout"))
	assert.Equal(t, "layout: de,us (from static)\ngroups: de,us\n", execute(t, "layout", "--layout", "de,us"))
	assert.Equal(t, "35\n23\nshift+3\n", execute(t, "type", "--dry-run", "--layout", "us", "hi@"))

	dump := execute(t, "keymap", "fr")
	assert.Contains(t, dump, "# layout \"fr\" groups fr\n")
	assert.Contains(t, dump, " 16 0 [a] [A]\n")
}

func TestCommandErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--config-dir", t.TempDir(), "layout", "--layout", "xx"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, keymap.ErrUnknownLayout)

	cmd = newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--config-dir", t.TempDir(), "monitor", "--discipline", "threads"})
	assert.Error(t, cmd.Execute())
}

func TestMonitorCatchesSignalsWhileOpening(t *testing.T) {
	failed := errors.New("no session")
	openInput = func(string, string, input.Options) (*input.Session, error) {
		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
		time.Sleep(100 * time.Millisecond)
		return nil, failed
	}
	t.Cleanup(func() { openInput = input.Open })

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--config-dir", t.TempDir(), "monitor", "--layout", "us"})
	assert.ErrorIs(t, cmd.Execute(), failed)
}
