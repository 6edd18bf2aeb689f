package sessionbridge

import (
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// LogoutPolicy decides which 401 responses end the session.
type LogoutPolicy string

const (
	// PolicyStrict treats every 401 as an authentication failure.
	PolicyStrict LogoutPolicy = "strict"
	// PolicyKeyword only logs out when the detail looks like a token problem.
	PolicyKeyword LogoutPolicy = "keyword"
)

var authFailureKeywords = []string{
	"token",
	"jwt",
	"expired",
	"signature",
	"not authenticated",
	"missing bearer",
	"invalid",
}

// ParseLogoutPolicy accepts "strict", "keyword" or "" (strict).
func ParseLogoutPolicy(s string) (LogoutPolicy, error) {
	switch LogoutPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyKeyword:
		return PolicyKeyword, nil
	}
	return "", oops.Code("config_invalid").With("logout_policy", s).Errorf("unknown logout policy %q", s)
}

// Classifier maps a ClientError to the kind the session guard acts on.
type Classifier struct {
	Policy LogoutPolicy
}

// Classify returns KindAuthInvalid for 401s the policy treats as a dead session,
// and the error's own kind otherwise.
func (c Classifier) Classify(err *ClientError) ErrorKind {
	if err == nil {
		return ""
	}
	if err.Status != http.StatusUnauthorized {
		return err.Kind
	}
	if c.Policy == PolicyKeyword && !mentionsAuthFailure(err.Detail) {
		return err.Kind
	}
	return KindAuthInvalid
}

func mentionsAuthFailure(detail string) bool {
	d := strings.ToLower(detail)
	for _, kw := range authFailureKeywords {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}
