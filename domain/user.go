package domain

import "time"

// User represents an authenticated identity in the marketplace.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email,omitempty"`
	Role      string         `json:"role,omitempty"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Clone copies the user. Nested maps and slices in Metadata are copied too.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Metadata != nil {
		out.Metadata = cloneMap(u.Metadata)
	}
	return &out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container shapes produced by encoding/json.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		return cloneMap(val)
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
