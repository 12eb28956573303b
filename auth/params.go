package auth

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
)

const (
	paramSeparator = ","
	kvSeparator    = ":"
)

// ParamMap holds plugin construction parameters.
type ParamMap map[string]string

// ParseParams parses "key1:value1,key2:value2". Segments that do not split
// into exactly two non-empty parts on ":" are dropped. No trimming or
// escaping is applied.
func ParseParams(s string) ParamMap {
	return ParseParamsFunc(s, nil)
}

// ParseParamsFunc is ParseParams with a hook that receives every dropped
// segment. onMalformed may be nil.
func ParseParamsFunc(s string, onMalformed func(segment string)) ParamMap {
	params := make(ParamMap)
	if s == "" {
		return params
	}

	for _, segment := range strings.Split(s, paramSeparator) {
		kv := strings.Split(segment, kvSeparator)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			if onMalformed != nil {
				onMalformed(segment)
			}
			continue
		}
		params[kv[0]] = kv[1]
	}
	return params
}

// String serializes the map in the ParseParams format with keys sorted.
func (p ParamMap) String() string {
	keys := slices.Sorted(maps.Keys(p))
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(paramSeparator)
		}
		b.WriteString(k)
		b.WriteString(kvSeparator)
		b.WriteString(p[k])
	}
	return b.String()
}

// Clone returns a copy of p. The copy of a nil map is an empty map.
func (p ParamMap) Clone() ParamMap {
	out := make(ParamMap, len(p))
	maps.Copy(out, p)
	return out
}

// LogValue implements slog.LogValuer. Only keys are logged since values
// routinely carry secrets.
func (p ParamMap) LogValue() slog.Value {
	return slog.AnyValue(slices.Sorted(maps.Keys(p)))
}
