package mock

import (
	"context"
	"net/http"
	"sync"

	sessionbridge "github.com/opengovern/session-bridge"
)

// Transport is a scripted sessionbridge.Transport that records every request.
type Transport struct {
	// Responder builds the response; nil answers 200 with `{"success":true}`.
	Responder func(req *sessionbridge.NormalizedRequest) (*sessionbridge.NormalizedResponse, error)
	// Hang makes every call block until its context is done.
	Hang bool
	// Release, when set, makes every call wait for it to be closed, ignoring the
	// context, before responding.
	Release chan struct{}

	mu        sync.Mutex
	requests  []*sessionbridge.NormalizedRequest
	completed int
}

func (m *Transport) ExecuteRequest(ctx context.Context, req *sessionbridge.NormalizedRequest) (*sessionbridge.NormalizedResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.completed++
		m.mu.Unlock()
	}()

	if m.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.Release != nil {
		<-m.Release
	}
	if m.Responder == nil {
		return Response(http.StatusOK, `{"success":true}`), nil
	}
	return m.Responder(req)
}

// Calls is the number of requests that reached the transport.
func (m *Transport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Completed is the number of calls that have returned.
func (m *Transport) Completed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

func (m *Transport) Requests() []*sessionbridge.NormalizedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*sessionbridge.NormalizedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *Transport) LastRequest() *sessionbridge.NormalizedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Response builds a response with the given status and raw body.
func Response(status int, body string) *sessionbridge.NormalizedResponse {
	return &sessionbridge.NormalizedResponse{
		StatusCode: status,
		Headers:    http.Header{},
		Data:       []byte(body),
	}
}

// Respond returns a Responder that always answers status/body.
func Respond(status int, body string) func(*sessionbridge.NormalizedRequest) (*sessionbridge.NormalizedResponse, error) {
	return func(*sessionbridge.NormalizedRequest) (*sessionbridge.NormalizedResponse, error) {
		return Response(status, body), nil
	}
}

// Routes answers by endpoint; unknown endpoints get 404.
func Routes(routes map[string]*sessionbridge.NormalizedResponse) func(*sessionbridge.NormalizedRequest) (*sessionbridge.NormalizedResponse, error) {
	return func(req *sessionbridge.NormalizedRequest) (*sessionbridge.NormalizedResponse, error) {
		if resp, ok := routes[req.Endpoint]; ok {
			return resp, nil
		}
		return Response(http.StatusNotFound, `{"detail":"Not Found"}`), nil
	}
}

// Navigator records navigation targets.
type Navigator struct {
	mu      sync.Mutex
	targets []string
	ch      chan string
}

func NewNavigator() *Navigator {
	return &Navigator{ch: make(chan string, 16)}
}

func (n *Navigator) Navigate(target string) {
	n.mu.Lock()
	n.targets = append(n.targets, target)
	n.mu.Unlock()
	select {
	case n.ch <- target:
	default:
	}
}

// Targets returns every target navigated to so far.
func (n *Navigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.targets))
	copy(out, n.targets)
	return out
}

// C delivers targets as navigation happens.
func (n *Navigator) C() <-chan string {
	return n.ch
}
