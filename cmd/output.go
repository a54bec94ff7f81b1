package main

import (
	"encoding/json"
	"fmt"
	"io"

	"eventcal/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// printResult writes v to w in the requested format. Events are written
// through their plain mapping so both formats carry the same keys.
func printResult(w io.Writer, format string, v any) error {
	switch e := v.(type) {
	case models.Event:
		v = e.ToMap()
	case []models.Event:
		maps := make([]map[string]any, 0, len(e))
		for _, event := range e {
			maps = append(maps, event.ToMap())
		}
		v = maps
	}

	switch format {
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
