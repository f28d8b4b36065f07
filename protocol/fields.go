package protocol

// msgpack decodes integers into whichever Go type fits, so field access
// goes through these coercion helpers rather than type assertions.

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	default:
		n, ok := asInt64(v)
		return ok && n != 0
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// intField returns the first of the named keys holding an integer.
func intField(m map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if n, ok := asInt64(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// intFieldOr is intField with a fallback value.
func intFieldOr(m map[string]any, fallback int64, keys ...string) int64 {
	if n, ok := intField(m, keys...); ok {
		return n
	}
	return fallback
}

// stringField returns the first of the named keys holding a non-empty
// string, or "".
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := asString(v); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// boolField returns the named key coerced to bool, absent meaning false.
func boolField(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && asBool(v)
}

// stringListField returns the named key as a string slice, tolerating
// mixed-type lists by skipping non-string entries.
func stringListField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := asString(v); ok {
			out = append(out, s)
		}
	}
	return out
}

// anyField returns the first of the named keys present in the map.
func anyField(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return nil
}
