package types

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPluginVersion is assigned to records created without a version.
const DefaultPluginVersion = "1.0.0"

// AuthType selects how a plugin's credential is formatted.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeCustom AuthType = "custom"
)

// AuthLocation selects where a plugin's credential is injected.
type AuthLocation string

const (
	AuthLocationHeader AuthLocation = "header"
	AuthLocationQuery  AuthLocation = "query"
	AuthLocationBody   AuthLocation = "body"
)

// Plugin is a user-configured external tool described by an API document.
type Plugin struct {
	ID           string       `json:"id"`
	CreatedAt    int64        `json:"createdAt"`
	Title        string       `json:"title"`
	Version      string       `json:"version"`
	Content      string       `json:"content"`
	Builtin      bool         `json:"builtin"`
	AuthType     AuthType     `json:"authType,omitempty"`
	AuthLocation AuthLocation `json:"authLocation,omitempty"`
	AuthHeader   string       `json:"authHeader,omitempty"`
	AuthToken    string       `json:"authToken,omitempty"`
	UsingProxy   bool         `json:"usingProxy,omitempty"`
}

// NewEmptyPlugin returns a record carrying the defaults applied on create.
func NewEmptyPlugin() Plugin {
	return Plugin{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UnixMilli(),
		Version:   DefaultPluginVersion,
	}
}

// Location returns the configured auth location, defaulting to header.
func (p Plugin) Location() AuthLocation {
	if p.AuthLocation == "" {
		return AuthLocationHeader
	}
	return p.AuthLocation
}

// Valid reports whether the enumerated auth fields hold known values.
func (p Plugin) Valid() bool {
	switch p.AuthType {
	case "", AuthTypeNone, AuthTypeBasic, AuthTypeBearer, AuthTypeCustom:
	default:
		return false
	}
	switch p.AuthLocation {
	case "", AuthLocationHeader, AuthLocationQuery, AuthLocationBody:
	default:
		return false
	}
	return true
}
