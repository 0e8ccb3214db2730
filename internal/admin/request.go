package admin

import (
	"encoding/json"
	"math"
)

// Request is a decoded JSON command such as {"command": "server-list"}.
type Request map[string]any

// Response is the JSON document answered to a Request.
type Response map[string]any

func (r Request) Command() string {
	s, _ := r["command"].(string)
	return s
}

// String returns a mandatory non-empty string field.
func (r Request) String(key string, code Code) (string, error) {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return "", newError(code, "missing or invalid %q", key)
	}
	return s, nil
}

// OptString returns a string field or def when absent.
func (r Request) OptString(key, def string, code Code) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", newError(code, "invalid %q", key)
	}
	return s, nil
}

func (r Request) Int(key string, code Code) (int, error) {
	v, ok := r[key]
	if !ok {
		return 0, newError(code, "missing %q", key)
	}
	return toInt(v, key, code)
}

func (r Request) OptInt(key string, def int, code Code) (int, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return def, nil
	}
	return toInt(v, key, code)
}

func (r Request) OptBool(key string, def bool, code Code) (bool, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, newError(code, "invalid %q", key)
	}
	return b, nil
}

// Strings accepts a single string or an array of strings.
func (r Request) Strings(key string, code Code) ([]string, error) {
	switch v := r[key].(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, newError(code, "invalid %q", key)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, newError(code, "invalid %q", key)
}

func toInt(v any, key string, code Code) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			break
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			break
		}
		return int(i), nil
	}
	return 0, newError(code, "invalid %q", key)
}

// Failure builds the error response of command.
func Failure(command string, err *Error) Response {
	res := Response{
		"error":         int(err.Code),
		"errorCategory": err.Code.Category(),
		"errorMessage":  err.Message,
	}
	if command != "" {
		res["command"] = command
	}
	return res
}
