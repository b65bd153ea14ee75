package model

// IdentifierKey is the canonical key under which a session identity carries
// its stable identifier once resolved.
const IdentifierKey = "id"

// AdminSubRole is the elevated sub-role carried inside a customer identity.
// It is not a top-level Role; merchants cannot hold it.
const AdminSubRole = "admin"

// Identity is the free-form record describing the authenticated subject.
// Its shape is owned by the upstream backend; only the canonical identifier
// key is guaranteed once a session is resolved.
type Identity map[string]any

// Clone returns a deep copy of the identity. Nested objects and arrays as
// decoded from JSON are copied too, so mutating a clone never reaches the
// original.
func (id Identity) Clone() Identity {
	if id == nil {
		return nil
	}
	out := make(Identity, len(id))
	for k, v := range id {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case Identity:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

// Session is the authoritative identity record for the current client:
// an opaque bearer token, the resolved namespace role, and the identity
// record returned by the authentication endpoint.
type Session struct {
	Token    string   `json:"token"`
	Role     Role     `json:"role"`
	Identity Identity `json:"identity"`
}

// Identifier returns the stable identifier under the canonical key,
// or "" if the identity does not carry one.
func (s *Session) Identifier() string {
	if s.Identity == nil {
		return ""
	}
	v, _ := s.Identity[IdentifierKey].(string)
	return v
}

// IsAdmin reports whether the session carries the elevated admin sub-role.
// Only customer-namespace identities can carry it.
func (s *Session) IsAdmin() bool {
	if s.Role != RoleCustomer || s.Identity == nil {
		return false
	}
	sub, _ := s.Identity["role"].(string)
	return sub == AdminSubRole
}

// HomeRoute returns the landing route for this session: merchants go to the
// merchant home, admins to the administrative home, everyone else to the
// general home.
func (s *Session) HomeRoute() string {
	switch {
	case s.Role == RoleMerchant:
		return "/merchant/home"
	case s.IsAdmin():
		return "/admin/home"
	default:
		return "/home"
	}
}

// Snapshot returns a copy safe to hand to callers: mutating the returned
// identity does not affect the stored session.
func (s *Session) Snapshot() Session {
	return Session{Token: s.Token, Role: s.Role, Identity: s.Identity.Clone()}
}
