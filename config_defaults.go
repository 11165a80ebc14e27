package main

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

//go:embed defaults/config.yml
var defaultConfigs embed.FS

// initConfig creates the config directory and writes the embedded default
// config.yml unless one already exists.
func initConfig(dir string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	dst := filepath.Join(dir, configFile)
	if _, err := os.Stat(dst); err == nil {
		fmt.Fprintf(out, "  skip %s (already exists)\n", configFile)
		return nil
	}

	data, err := defaultConfigs.ReadFile("defaults/" + configFile)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", configFile, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	fmt.Fprintf(out, "  created %s\n", configFile)
	return nil
}
