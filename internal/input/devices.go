// Package input binds a raw device context to a seat and translates evdev
// frames into the typed events of package event.
package input

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"

	"github.com/andresousadotpt/seatkeys/internal/session"
)

var (
	// UdevDataDir holds udev's per-device property databases.
	UdevDataDir = "/run/udev/data"
	// SysfsInputDir exposes device names without opening the node.
	SysfsInputDir = "/sys/class/input"
)

// UnassignedSeat is the seat udev gives devices without an ID_SEAT tag.
const UnassignedSeat = "seat0"

// deviceID returns N for an eventN node, or -1.
func deviceID(path string) int {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "event") {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(base, "event"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func isEventNode(path string) bool { return deviceID(path) >= 0 }

// ListEventNodes returns the event nodes under session.InputDir ordered by
// number. Names come from sysfs so unreadable nodes are still listed.
func ListEventNodes() ([]evdev.InputPath, error) {
	nodes, err := filepath.Glob(filepath.Join(session.InputDir, "event*"))
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	nodes = slices.DeleteFunc(nodes, func(p string) bool { return !isEventNode(p) })
	slices.SortFunc(nodes, func(a, b string) int { return deviceID(a) - deviceID(b) })

	paths := make([]evdev.InputPath, 0, len(nodes))
	for _, n := range nodes {
		paths = append(paths, evdev.InputPath{Name: sysfsName(n), Path: n})
	}
	return paths, nil
}

func sysfsName(path string) string {
	b, err := os.ReadFile(filepath.Join(SysfsInputDir, filepath.Base(path), "device", "name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// UdevProperties returns the E: entries udev recorded for a device node,
// or nil when it has none.
func UdevProperties(path string) map[string]string {
	major, minor, err := session.DeviceNumber(path)
	if err != nil {
		return nil
	}
	return readUdevData(filepath.Join(UdevDataDir, fmt.Sprintf("c%d:%d", major, minor)))
}

func readUdevData(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	props := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line, ok := strings.CutPrefix(scanner.Text(), "E:")
		if !ok {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			props[k] = v
		}
	}
	return props
}

// seatOf returns the seat udev assigned a device to.
func seatOf(props map[string]string) string {
	if s := props["ID_SEAT"]; s != "" {
		return s
	}
	return UnassignedSeat
}

// SameSeat compares seat names, treating "seat0" and "seat-0" alike.
func SameSeat(a, b string) bool {
	return normalizeSeat(a) == normalizeSeat(b)
}

func normalizeSeat(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
}
