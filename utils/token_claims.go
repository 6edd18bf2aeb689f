// utils/token_claims.go
package utils

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/samber/oops"
)

// AccessClaims is the payload the backend puts in access tokens.
type AccessClaims struct {
	Type   string `json:"type,omitempty"`
	UserID any    `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo summarizes a stored access token for display.
type TokenInfo struct {
	Subject   string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Masked    string
}

// Expired reports whether the token carried an exp claim that is before now.
func (ti *TokenInfo) Expired(now time.Time) bool {
	return !ti.ExpiresAt.IsZero() && ti.ExpiresAt.Before(now)
}

// InspectToken decodes the claims of a JWT without verifying its signature.
// The client never holds the signing secret; this is for display only and must
// not be used to decide whether the session is valid.
func InspectToken(token string) (*TokenInfo, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, oops.Code("token_malformed").With("token", MaskToken(token)).Wrapf(err, "parse access token")
	}

	info := &TokenInfo{
		Subject: claims.Subject,
		Type:    claims.Type,
		Masked:  MaskToken(token),
	}
	if info.Subject == "" && claims.UserID != nil {
		info.Subject = toString(claims.UserID)
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// MaskToken keeps enough of a token to correlate log lines without leaking it.
func MaskToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) > 20:
		return token[:12] + "..." + token[len(token)-6:]
	case len(token) > 8:
		return token[:8] + "..."
	default:
		return "..."
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
