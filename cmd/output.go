// Package cmd provides CLI commands for the prepbrief tool.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/prepbrief/config"
)

// resolveOutputFormat returns the output format from flag or config.
func resolveOutputFormat(flag string, cfg *config.CLIConfig) (config.OutputFormat, error) {
	if flag != "" {
		format := config.OutputFormat(flag)
		if !format.IsValid() {
			return "", fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", flag)
		}
		return format, nil
	}
	if cfg != nil && cfg.OutputFormat != "" {
		return cfg.OutputFormat, nil
	}
	return config.OutputFormatText, nil
}

// writeStructured writes v as JSON or YAML. It reports false for text
// output, which callers render themselves.
func writeStructured(w io.Writer, format config.OutputFormat, v any) (bool, error) {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

// joinOrDash joins names, or returns "-" for an empty list.
func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
