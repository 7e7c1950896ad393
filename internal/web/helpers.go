package web

import "strconv"

// ContextValue returns the value stored under key with type T, or the zero value.
func ContextValue[T any](c Context, key any) T {
	v, _ := c.Get(key).(T)
	return v
}

// ParamInt64 parses a URL parameter. ok is false when it is missing or malformed.
func ParamInt64(c Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	return v, err == nil
}
