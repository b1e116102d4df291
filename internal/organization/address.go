package organization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxAddressDepth bounds how many times a JSON string may wrap another JSON
// document before the value is taken literally.
const maxAddressDepth = 3

// AddressLines is an address normalized to ordered, trimmed, non-empty lines.
type AddressLines []string

// MarshalJSON always emits an array, never null.
func (a AddressLines) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

// UnmarshalJSON accepts every encoding NormalizeAddress understands and
// never fails.
func (a *AddressLines) UnmarshalJSON(data []byte) error {
	*a = ParseAddress(data)
	return nil
}

// String joins the lines with ", ".
func (a AddressLines) String() string {
	return strings.Join(a, ", ")
}

// ParseAddress normalizes raw column or JSON bytes. Input that is not valid
// JSON is taken as a single address line.
func ParseAddress(data []byte) AddressLines {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return AddressLines{}
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return NormalizeAddress(string(data))
	}
	return NormalizeAddress(v)
}

// NormalizeAddress converts an address in any of the encodings found in the
// stores (native array, scalar string, JSON-encoded array string,
// object of strings) into ordered, trimmed, non-empty lines. Malformed
// input yields an empty slice.
func NormalizeAddress(v any) AddressLines {
	return normalizeAddress(v, 0)
}

func normalizeAddress(v any, depth int) AddressLines {
	out := AddressLines{}
	switch t := v.(type) {
	case nil:
		return out
	case AddressLines:
		return appendLines(out, t...)
	case []string:
		return appendLines(out, t...)
	case []any:
		for _, item := range t {
			if s, ok := scalarLine(item); ok {
				out = appendLines(out, s)
			}
		}
		return out
	case map[string]string:
		for _, k := range sortedKeys(t) {
			out = appendLines(out, t[k])
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := scalarLine(t[k]); ok {
				out = appendLines(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return out
		}
		if depth < maxAddressDepth && (s[0] == '[' || s[0] == '{' || s[0] == '"') {
			var inner any
			if err := json.Unmarshal([]byte(s), &inner); err == nil {
				return normalizeAddress(inner, depth+1)
			}
		}
		return appendLines(out, s)
	default:
		return out
	}
}

func scalarLine(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return fmt.Sprintf("%v", t), true
	default:
		return "", false
	}
}

func appendLines(out AddressLines, lines ...string) AddressLines {
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
