package infra

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Document is a loosely typed JSON object read from a JSONB column. Values
// written by older clients may carry numbers as strings, so every accessor
// is tolerant and takes a list of keys, returning the first one present.
type Document map[string]interface{}

// ParseDocument decodes raw JSON into a Document. Empty or invalid input
// yields an empty document.
func ParseDocument(raw []byte) Document {
	doc := Document{}
	if len(raw) == 0 {
		return doc
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}
	}
	return doc
}

func (d Document) lookup(keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := d[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Sub returns the nested object under key, or an empty document.
func (d Document) Sub(key string) Document {
	if v, ok := d[key].(map[string]interface{}); ok {
		return Document(v)
	}
	return Document{}
}

// Float reads a number. Strings are parsed; anything else reads as 0.
func (d Document) Float(keys ...string) float64 {
	v, ok := d.lookup(keys)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		dec, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return dec.InexactFloat64()
	}
	return 0
}

// Int reads a number truncated toward zero.
func (d Document) Int(keys ...string) int {
	return int(d.Float(keys...))
}

// Bool reads a boolean. "true"/"1" strings and non-zero numbers count as true.
func (d Document) Bool(keys ...string) bool {
	v, ok := d.lookup(keys)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	}
	return false
}

// String reads a string. Numbers are formatted.
func (d Document) String(keys ...string) string {
	v, ok := d.lookup(keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// Strings reads an array of strings, skipping non-string entries.
func (d Document) Strings(keys ...string) []string {
	v, ok := d.lookup(keys)
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Time reads an RFC 3339 timestamp. Missing or malformed values return nil.
func (d Document) Time(keys ...string) *time.Time {
	s := d.String(keys...)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
