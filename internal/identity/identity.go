// Package identity normalizes the shape-varying payloads returned by the
// upstream authentication and profile endpoints. All shape probing lives
// here; every other component consumes only the normalized session shape.
package identity

import (
	"encoding/json"
	"strconv"

	"github.com/me/shopgate/pkg/model"
)

// Identifier keys probed at each level, in order.
var idKeys = []string{"id", "_id", "userId"}

// Sub-objects probed when no top-level identifier matches, in order.
var nestedKeys = []string{"user", "seller", "userData"}

// Extract returns the first stable identifier found in a decoded server
// response of unknown shape, probing top-level identifier fields and then
// the known sub-objects. Returns "" when nothing matches. Total: nil,
// non-map, and junk inputs resolve to "" rather than panicking.
func Extract(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		if im, ok := v.(model.Identity); ok {
			m = map[string]any(im)
		} else {
			return ""
		}
	}

	if id := extractFlat(m); id != "" {
		return id
	}
	for _, key := range nestedKeys {
		if sub, ok := m[key].(map[string]any); ok {
			if id := extractFlat(sub); id != "" {
				return id
			}
		}
	}
	return ""
}

func extractFlat(m map[string]any) string {
	for _, key := range idKeys {
		if id := asID(m[key]); id != "" {
			return id
		}
	}
	return ""
}

// asID renders a candidate identifier value as a string. Numeric ids are
// formatted without an exponent so they round-trip through JSON decoding.
func asID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// Merge returns a copy of identity guaranteed to carry id under the
// canonical key. An identifier already present is never overwritten, and
// the input record is never mutated. A nil identity yields a fresh record.
func Merge(identity model.Identity, id string) model.Identity {
	out := identity.Clone()
	if out == nil {
		out = model.Identity{}
	}
	if cur, _ := out[model.IdentifierKey].(string); cur == "" && id != "" {
		out[model.IdentifierKey] = id
	}
	return out
}

// Record picks the identity record out of a decoded login reply. The
// backend nests it under user, seller, or userData depending on the
// endpoint; older replies carry the fields at the top level, in which case
// everything except the transport bookkeeping keys is kept.
func Record(raw map[string]any) model.Identity {
	if raw == nil {
		return model.Identity{}
	}
	for _, key := range nestedKeys {
		if sub, ok := raw[key].(map[string]any); ok {
			return model.Identity(sub).Clone()
		}
	}
	out := model.Identity{}
	for k, v := range raw {
		switch k {
		case "token", "success", "message":
		default:
			out[k] = v
		}
	}
	return out
}
