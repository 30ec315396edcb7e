package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Object is a decoded JSON object.
type Object = map[string]any

var ldScript = regexp.MustCompile(`(?i)<script[^>]*type=["']application/ld\+json["'][^>]*>([\s\S]*?)</script>`)

// JSONLDBlocks decodes every application/ld+json script. Top-level arrays
// and @graph arrays are flattened into the result. Blocks that fail to
// decode are skipped. When the document yields nothing the raw markup is
// scanned with a regex, which catches scripts a broken DOM lost.
func JSONLDBlocks(doc Document, raw string) []Object {
	var out []Object
	for _, s := range doc.QuerySelectorAll(`script[type="application/ld+json"]`) {
		out = appendLD(out, s.Text())
	}
	if len(out) > 0 {
		return out
	}
	for _, m := range ldScript.FindAllStringSubmatch(raw, -1) {
		out = appendLD(out, m[1])
	}
	return out
}

func appendLD(out []Object, body string) []Object {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &v); err != nil {
		return out
	}
	return flattenLD(out, v)
}

func flattenLD(out []Object, v any) []Object {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = flattenLD(out, item)
		}
	case Object:
		out = append(out, t)
		if graph, ok := t["@graph"].([]any); ok {
			out = flattenLD(out, graph)
		}
	}
	return out
}

// FindByType returns the first block whose @type (string or list) contains
// typ, case-insensitively, or nil.
func FindByType(blocks []Object, typ string) Object {
	want := strings.ToLower(typ)
	for _, b := range blocks {
		switch t := b["@type"].(type) {
		case string:
			if strings.Contains(strings.ToLower(t), want) {
				return b
			}
		case []any:
			for _, s := range t {
				if str, ok := s.(string); ok && strings.Contains(strings.ToLower(str), want) {
					return b
				}
			}
		}
	}
	return nil
}

// Str reads a string field, formatting numbers. Missing fields are "".
func Str(o Object, key string) string {
	if o == nil {
		return ""
	}
	return AsString(o[key])
}

// AsString converts a decoded JSON scalar to a string.
func AsString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// AsFloat converts a decoded JSON number, or numeric string, to float64.
func AsFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := ParseFloat(t)
		return f
	}
	return 0
}

// Obj reads a nested object field, or nil.
func Obj(o Object, key string) Object {
	if o == nil {
		return nil
	}
	m, _ := o[key].(Object)
	return m
}

// Strings reads a field holding a string or a list of strings.
func Strings(o Object, key string) []string {
	if o == nil {
		return nil
	}
	switch t := o[key].(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Objects reads a field holding a list of objects.
func Objects(o Object, key string) []Object {
	if o == nil {
		return nil
	}
	list, _ := o[key].([]any)
	var out []Object
	for _, item := range list {
		if m, ok := item.(Object); ok {
			out = append(out, m)
		}
	}
	return out
}
