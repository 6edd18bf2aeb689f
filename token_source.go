package sessionbridge

import "golang.org/x/oauth2"

// SessionTokenSource exposes the stored token as an oauth2.TokenSource. Every call
// reads the store again, so a Clear made elsewhere is seen on the next request.
type SessionTokenSource struct {
	Store SessionStore
}

var _ oauth2.TokenSource = SessionTokenSource{}

func (s SessionTokenSource) Token() (*oauth2.Token, error) {
	if s.Store == nil {
		return nil, ErrNoToken
	}
	tok, ok := s.Store.Get()
	if !ok || tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// authorizationValue renders the Authorization header for t.
func authorizationValue(t *oauth2.Token) string {
	return t.Type() + " " + t.AccessToken
}
