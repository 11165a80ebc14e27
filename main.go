package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andresousadotpt/seatkeys/internal/decoder"
	"github.com/andresousadotpt/seatkeys/internal/dispatch"
	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/inject"
	"github.com/andresousadotpt/seatkeys/internal/input"
	"github.com/andresousadotpt/seatkeys/internal/keymap"
	"github.com/andresousadotpt/seatkeys/internal/layout"
)

var version = "0.1.0"

// openInput acquires the input session for monitor.
var openInput = input.Open

// app holds flag values and what setup derives from them.
type app struct {
	out io.Writer
	log *slog.Logger
	cfg *AppConfig
	dir string

	configDir string
	logLevel  string
	logFormat string

	layout     string
	session    string
	seat       string
	discipline string
	stopKey    string
	tick       time.Duration
	duration   time.Duration
	grab       bool
	hotplug    bool

	dryRun    bool
	typeDelay time.Duration
	settle    time.Duration
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seatkeys: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "seatkeys",
		Short:         "Read the seat's input devices and decode keystrokes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, errOut)
		},
		RunE: a.runMonitor,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "config directory (default $XDG_CONFIG_HOME/seatkeys)")
	pf.StringVar(&a.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", "text", "text or json")
	pf.StringVar(&a.layout, "layout", "", "keyboard layout, e.g. de or us,de (skips resolution)")
	a.monitorFlags(root)

	monitor := &cobra.Command{
		Use:   "monitor",
		Short: "Print every input event until the stop key, the duration or a signal",
		Args:  cobra.NoArgs,
		RunE:  a.runMonitor,
	}
	a.monitorFlags(monitor)

	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Show the resolved keyboard layout and where it came from",
		Args:  cobra.NoArgs,
		RunE:  a.runLayout,
	}

	keymapCmd := &cobra.Command{
		Use:   "keymap [layout]",
		Short: "Dump keycode to keysym tables",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runKeymap,
	}

	typeCmd := &cobra.Command{
		Use:   "type TEXT...",
		Short: "Type text through a virtual keyboard",
		Args:  cobra.MinimumNArgs(1),
		RunE:  a.runType,
	}
	typeCmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "print the key strokes instead of sending them")
	typeCmd.Flags().DurationVar(&a.typeDelay, "delay", inject.DefaultDelay, "pause between key strokes")
	typeCmd.Flags().DurationVar(&a.settle, "settle", 300*time.Millisecond, "wait for the new device to be picked up")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.out, "seatkeys: initializing config in %s\n", a.dir)
			if err := initConfig(a.dir, a.out); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "seatkeys: config initialized")
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.out, "seatkeys %s\n", version)
			return nil
		},
	}

	root.AddCommand(monitor, layoutCmd, keymapCmd, typeCmd, initCmd, versionCmd)
	return root
}

func (a *app) monitorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&a.session, "session", "", "session provider: auto, logind or direct")
	f.StringVar(&a.seat, "seat", "", "seat for the direct session")
	f.StringVar(&a.discipline, "discipline", "", "dispatch loop: reactor or poll")
	f.StringVar(&a.stopKey, "stop-key", "", "keysym that stops the monitor")
	f.DurationVar(&a.tick, "tick", 0, "longest wait between dispatches")
	f.DurationVar(&a.duration, "duration", 0, "stop after this long (0 = until stopped)")
	f.BoolVar(&a.grab, "grab", false, "take devices exclusively")
	f.BoolVar(&a.hotplug, "hotplug", true, "follow devices being added and removed")
}

// override replaces a config value with its flag when the flag was given.
func override[T any](cmd *cobra.Command, name string, dst *T, v T) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}

func (a *app) setup(cmd *cobra.Command, errOut io.Writer) error {
	log, err := newLogger(errOut, a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.log = log
	slog.SetDefault(log)

	a.dir = a.configDir
	if a.dir == "" {
		a.dir = configDir()
	}
	cfg, err := LoadAppConfig(a.dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	override(cmd, "layout", &cfg.Layout, a.layout)
	override(cmd, "session", &cfg.Session, a.session)
	override(cmd, "seat", &cfg.Seat, a.seat)
	override(cmd, "discipline", &cfg.Discipline, a.discipline)
	override(cmd, "stop-key", &cfg.StopKey, a.stopKey)
	override(cmd, "tick", &cfg.Tick, a.tick)
	override(cmd, "duration", &cfg.Duration, a.duration)
	override(cmd, "grab", &cfg.Grab, a.grab)
	override(cmd, "hotplug", &cfg.Hotplug, a.hotplug)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) resolveLayout() layout.Result {
	res := layout.Resolve(a.cfg.LayoutSources(a.log)...)
	a.log.Debug("layout resolved", "layout", res.Layout, "source", res.Source)
	return res
}

func (a *app) runMonitor(cmd *cobra.Command, _ []string) error {
	res := a.resolveLayout()
	dec, err := decoder.New(res.Layout)
	if err != nil {
		return err
	}
	stopSym, _ := keymap.ParseKeysym(a.cfg.StopKey)

	// Installed before input.Open: a signal must not kill the process
	// while it holds the session.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openInput(a.cfg.Session, a.cfg.Seat, input.Options{
		Grab:    a.cfg.Grab,
		Hotplug: a.cfg.Hotplug,
		Log:     a.log,
	})
	if err != nil {
		return err
	}
	a.log.Info("monitoring",
		"seat", sess.Seat(), "provider", sess.Provider(), "devices", len(sess.Devices()),
		"layout", res.String(), "stop_key", stopSym, "discipline", a.cfg.Discipline)

	var loop *dispatch.Loop
	loop = dispatch.New(dec, func(ev event.Event) {
		fmt.Fprintln(a.out, describe(ev))
		if k, ok := ev.(dispatch.DecodedKey); ok && k.State == event.KeyPressed && slices.Contains(k.Keysyms, stopSym) {
			a.log.Info("stop key pressed")
			loop.Stop()
		}
	}, dispatch.Config{Tick: a.cfg.Tick, Deadline: a.cfg.Duration, Log: a.log})

	if a.cfg.Discipline == dispatch.DisciplinePoll {
		err = loop.Poll(ctx, sess, sess)
	} else {
		err = loop.Run(ctx, sess.Sources(), sess)
	}
	a.log.Info("monitor stopped", "events", loop.Delivered())
	return err
}

func (a *app) runLayout(*cobra.Command, []string) error {
	res := a.resolveLayout()
	km, err := keymap.Compile(res.Layout)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "layout: %s\n", res)
	fmt.Fprintf(a.out, "groups: %s\n", strings.Join(km.Groups(), ","))
	return nil
}

func (a *app) runKeymap(_ *cobra.Command, args []string) error {
	var id string
	if len(args) > 0 {
		id = args[0]
	} else {
		id = a.resolveLayout().Layout
	}
	km, err := keymap.Compile(id)
	if err != nil {
		return err
	}
	dumpKeymap(a.out, km)
	return nil
}

func (a *app) runType(_ *cobra.Command, args []string) error {
	km, err := keymap.Compile(a.resolveLayout().Layout)
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")

	if a.dryRun {
		strokes, err := inject.NewTypist(nil, km, 0, a.log).Plan(text)
		if err != nil {
			return err
		}
		for _, s := range strokes {
			fmt.Fprintln(a.out, s)
		}
		return nil
	}

	kbd, err := inject.NewVirtualKeyboard("seatkeys")
	if err != nil {
		return err
	}
	defer kbd.Close()
	time.Sleep(a.settle)
	return inject.NewTypist(kbd, km, a.typeDelay, a.log).Type(text)
}
