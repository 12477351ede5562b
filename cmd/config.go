package cmd

import (
	"fmt"
	"os"

	"formscan/internal/analyze"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

// loadConfig returns the detection configuration, with the optional YAML
// file from --config overriding the defaults field by field.
func loadConfig(cmd *cobra.Command) (analyze.Config, error) {
	cfg := analyze.DefaultConfig()

	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
