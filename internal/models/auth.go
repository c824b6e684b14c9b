package models

import "github.com/golang-jwt/jwt/v5"

// Scope names an API permission carried by an access token.
type Scope string

const (
	ScopePlansWrite     Scope = "plans:write"
	ScopeTaskListsWrite Scope = "tasklists:write"
)

// TokenClaims represents the JWT payload for API access tokens.
type TokenClaims struct {
	ClientID string  `json:"client_id"`
	Scopes   []Scope `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *TokenClaims) HasScope(scope Scope) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
