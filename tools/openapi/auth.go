package openapi

import "github.com/BaSui01/plugstore/types"

// DefaultAuthHeader carries credentials for every auth type except custom.
const DefaultAuthHeader = "Authorization"

// Credential is a formatted plugin credential and where it is injected.
type Credential struct {
	Name     string
	Value    string
	Location types.AuthLocation
}

// IsZero reports whether the credential injects nothing.
func (c Credential) IsZero() bool {
	return c.Name == "" || c.Value == ""
}

// CredentialFor derives the credential for p. Bearer tokens keep a leading
// space (" Bearer <token>") unless normalizeBearer is set; existing clients
// depend on the exact header value.
func CredentialFor(p types.Plugin, normalizeBearer bool) Credential {
	if p.AuthToken == "" {
		return Credential{}
	}

	name := DefaultAuthHeader
	var value string
	switch p.AuthType {
	case types.AuthTypeBasic:
		value = "Basic " + p.AuthToken
	case types.AuthTypeBearer:
		value = " Bearer " + p.AuthToken
		if normalizeBearer {
			value = "Bearer " + p.AuthToken
		}
	case types.AuthTypeCustom:
		name = p.AuthHeader
		value = p.AuthToken
	default:
		return Credential{}
	}
	if name == "" {
		return Credential{}
	}
	return Credential{Name: name, Value: value, Location: p.Location()}
}
