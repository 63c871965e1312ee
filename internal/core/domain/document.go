package domain

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"
)

// Document is a raw JSON object returned by the hosting API.
// Numbers are held as json.Number so that they are written back verbatim.
type Document map[string]any

// String returns a string field, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int64 returns an integer field, or 0 when absent or not a number.
func (d Document) Int64(key string) int64 {
	switch v := d[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return n
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// Int returns an integer field as int.
func (d Document) Int(key string) int {
	return int(d.Int64(key))
}

// Bool returns a boolean field, or false.
func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Object returns a nested object, or nil.
func (d Document) Object(key string) Document {
	switch v := d[key].(type) {
	case map[string]any:
		return Document(v)
	case Document:
		return v
	default:
		return nil
	}
}

// ID returns the "id" field formatted as a string.
func (d Document) ID() string {
	switch v := d["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return strconv.FormatInt(d.Int64("id"), 10)
	}
}

// Clone returns a shallow copy, so nested data can be attached without
// touching the original.
func (d Document) Clone() Document {
	return maps.Clone(d)
}

// Append adds value to the list stored under key, creating it if needed.
func (d Document) Append(key string, values ...any) {
	list, _ := d[key].([]any)
	d[key] = append(list, values...)
}

// StripURITemplate removes a trailing RFC 6570 template such as "{/owner}{/repo}".
func StripURITemplate(u string) string {
	if i := strings.IndexByte(u, '{'); i >= 0 {
		return u[:i]
	}
	return u
}
