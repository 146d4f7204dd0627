package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"borderdesk/internal/domain"
)

// walker visits a schema node alongside the matching value and records
// violations and defaulted optional fields.
type walker struct {
	errs    []domain.FieldError
	missing []string
}

func (w *walker) fail(path, message, code string) {
	w.errs = append(w.errs, domain.FieldError{Field: path, Message: message, Code: code})
}

func (w *walker) visit(node map[string]any, value any, present bool, path string, required bool) {
	if !present {
		value = nil
	}
	switch node["type"] {
	case "object":
		w.visitObject(node, value, path)
	case "array":
		w.visitArray(node, value, path, required)
	case "string":
		w.visitString(value, path, required)
	case "number":
		w.visitNumber(node, value, path, required)
	}
}

// visitObject never reports an absent object itself; its required members
// surface as individual errors instead.
func (w *walker) visitObject(node map[string]any, value any, path string) {
	var obj map[string]any
	if value != nil {
		var ok bool
		obj, ok = value.(map[string]any)
		if !ok {
			w.fail(displayPath(path), "must be an object", "type")
			return
		}
	}

	props, _ := node["properties"].(map[string]any)
	required := requiredSet(node)

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		child, _ := props[k].(map[string]any)
		v, ok := obj[k]
		w.visit(child, v, ok, join(path, k), required[k])
	}
}

func (w *walker) visitArray(node map[string]any, value any, path string, required bool) {
	minItems, hasMin := number(node["minItems"])
	if value == nil {
		if required || (hasMin && minItems > 0) {
			w.fail(path, fmt.Sprintf("must contain at least %d item(s)", atLeastOne(minItems)), "min_items")
		}
		return
	}
	arr, ok := value.([]any)
	if !ok {
		w.fail(path, "must be an array", "type")
		return
	}
	if hasMin && float64(len(arr)) < minItems {
		w.fail(path, fmt.Sprintf("must contain at least %d item(s)", atLeastOne(minItems)), "min_items")
		return
	}
	items, _ := node["items"].(map[string]any)
	for i, item := range arr {
		w.visit(items, item, true, fmt.Sprintf("%s[%d]", path, i), true)
	}
}

func (w *walker) visitString(value any, path string, required bool) {
	if value == nil {
		w.absent(path, required)
		return
	}
	s, ok := value.(string)
	if !ok {
		w.fail(path, "must be a string", "type")
		return
	}
	if strings.TrimSpace(s) == "" {
		w.absent(path, required)
	}
}

func (w *walker) visitNumber(node map[string]any, value any, path string, required bool) {
	if value == nil {
		w.absent(path, required)
		return
	}
	n, ok := value.(float64)
	if !ok {
		w.fail(path, "must be a number", "type")
		return
	}
	if n < 0 {
		w.fail(path, "must not be negative", "minimum")
		return
	}
	if exMin, ok := number(node["exclusiveMinimum"]); ok && n <= exMin {
		w.fail(path, fmt.Sprintf("must be greater than %g", exMin), "minimum")
		return
	}
	if lo, ok := number(node["minimum"]); ok && n < lo {
		w.fail(path, fmt.Sprintf("must be at least %g", lo), "minimum")
		return
	}
	if n == 0 && !required {
		w.missing = append(w.missing, path)
	}
}

func (w *walker) absent(path string, required bool) {
	if required {
		w.fail(path, "is required", "required")
		return
	}
	w.missing = append(w.missing, path)
}

func requiredSet(node map[string]any) map[string]bool {
	out := map[string]bool{}
	switch req := node["required"].(type) {
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out[s] = true
			}
		}
	case []string:
		for _, s := range req {
			out[s] = true
		}
	}
	return out
}

// number reads a numeric schema keyword regardless of its Go type.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func atLeastOne(n float64) int {
	if n < 1 {
		return 1
	}
	return int(n)
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
