package out

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zkevm-ops/zkadmin/internal/config"
	"github.com/zkevm-ops/zkadmin/internal/model"
)

func Render(w io.Writer, env model.Envelope, settings config.Settings) error {
	data := env.Data
	if len(settings.SelectFields) > 0 {
		data = project(data, settings.SelectFields)
	}

	if settings.ResultsOnly {
		if settings.OutputMode == "plain" {
			return renderPlain(w, data)
		}
		return encodeJSON(w, data)
	}

	if settings.OutputMode != "plain" {
		env.Data = data
		return encodeJSON(w, env)
	}

	plain := map[string]any{
		"success": env.Success,
		"data":    data,
		"meta":    env.Meta,
	}
	if len(env.Warnings) > 0 {
		plain["warnings"] = env.Warnings
	}
	if env.Error != nil {
		plain["error"] = env.Error
	}
	return renderPlain(w, plain)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderPlain writes one key=value line per leaf, with nested keys joined by
// dots and list elements addressed by index (steps.1.status=confirmed).
func renderPlain(w io.Writer, data any) error {
	lines := flatten("", normalizeValue(data), nil)
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func flatten(prefix string, v any, lines []string) []string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = flatten(join(prefix, k), t[k], lines)
		}
		return lines
	case []any:
		if len(t) == 0 {
			return append(lines, leaf(prefix, "[]"))
		}
		for i, item := range t {
			lines = flatten(join(prefix, fmt.Sprint(i)), item, lines)
		}
		return lines
	case nil:
		return append(lines, leaf(prefix, "null"))
	default:
		return append(lines, leaf(prefix, fmt.Sprint(t)))
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func leaf(key, value string) string {
	if key == "" {
		return value
	}
	return key + "=" + value
}

func project(data any, fields []string) any {
	n := normalizeValue(data)
	switch t := n.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, projectMap(m, fields))
		}
		return out
	case map[string]any:
		return projectMap(t, fields)
	default:
		return n
	}
}

func projectMap(m map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := m[strings.TrimSpace(f)]; ok {
			out[f] = v
		}
	}
	return out
}

func normalizeValue(v any) any {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}
