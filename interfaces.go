package sessionbridge

import "context"

// SessionStore holds the current authentication token. Get must reflect the most
// recent Set or Clear, including ones made through another handle on the same
// backing storage.
type SessionStore interface {
	Get() (string, bool)
	Set(token string)
	Clear()
}

// Transport sends one encoded request and returns the raw response. Implementations
// must honour ctx cancellation and read the full body before returning.
type Transport interface {
	ExecuteRequest(ctx context.Context, req *NormalizedRequest) (*NormalizedResponse, error)
}

// Navigator moves the user to another surface (a page, a screen, a prompt).
type Navigator interface {
	Navigate(target string)
}

// Validator checks user input before any request is built. A nil or empty slice
// means the input passed; otherwise each entry is a human-readable reason.
type Validator interface {
	ValidateLogin(email, password string) []string
	ValidateRegistration(name, email, password string) []string
	ValidateChatMessage(message string) []string
}
