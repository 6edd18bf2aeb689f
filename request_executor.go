package sessionbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"golang.org/x/oauth2"

	"github.com/opengovern/session-bridge/utils"
)

const HeaderRequestID = "X-Request-ID"

// ExecutorOptions tunes a RequestExecutor. Zero values select defaults.
type ExecutorOptions struct {
	DefaultTimeout time.Duration
	Logger         *zerolog.Logger
	Metrics        *Metrics
}

// RequestExecutor sends one deadline-bound request per call. It never retries.
type RequestExecutor struct {
	tokens         oauth2.TokenSource
	transport      Transport
	defaultTimeout time.Duration
	logger         atomic.Pointer[zerolog.Logger]
	metrics        *Metrics
}

func NewRequestExecutor(store SessionStore, transport Transport, opts ExecutorOptions) *RequestExecutor {
	re := &RequestExecutor{
		tokens:         SessionTokenSource{Store: store},
		transport:      transport,
		defaultTimeout: opts.DefaultTimeout,
		metrics:        opts.Metrics,
	}
	if re.defaultTimeout <= 0 {
		re.defaultTimeout = DefaultRequestTimeout
	}
	nop := zerolog.Nop()
	if opts.Logger != nil {
		nop = *opts.Logger
	}
	re.SetLogger(nop)
	return re
}

// SetLogger replaces the logger. Safe to call while requests are in flight.
func (re *RequestExecutor) SetLogger(l zerolog.Logger) {
	re.logger.Store(&l)
}

// Execute sends req and returns the decoded success body, which may be nil.
// Failures are *ClientError values. When requireAuth is set and no token is
// stored, the transport is never invoked.
func (re *RequestExecutor) Execute(ctx context.Context, req OutgoingRequest, requireAuth bool) (any, error) {
	requestID := ulid.Make().String()
	log := re.logger.Load().With().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("endpoint", req.Endpoint).
		Logger()

	token, err := re.tokens.Token()
	if err != nil {
		token = nil
	}
	if requireAuth && token == nil {
		cerr := &ClientError{Kind: KindAuthMissing, Status: http.StatusUnauthorized, Detail: detailMissingToken}
		log.Debug().Msg("no session token, request not sent")
		re.metrics.observeRequest(req.Endpoint, string(cerr.Kind), 0, false)
		return nil, cerr
	}

	nreq, err := buildRequest(req, token, requestID)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = re.defaultTimeout
	}
	if token != nil {
		log = log.With().Str("token", utils.MaskToken(token.AccessToken)).Logger()
	}
	log.Debug().Dur("timeout", timeout).Msg("sending request")

	start := time.Now()
	resp, err := callWithDeadline(ctx, timeout, func(callCtx context.Context) (*NormalizedResponse, error) {
		return re.transport.ExecuteRequest(callCtx, nreq)
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Debug().Err(err).Dur("elapsed", elapsed).Msg("request failed before a response")
		re.metrics.observeRequest(req.Endpoint, string(KindOf(err)), elapsed, true)
		return nil, err
	}

	parsed := ParseBody(resp.Data)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Debug().Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("request succeeded")
		re.metrics.observeRequest(req.Endpoint, outcomeSuccess, elapsed, true)
		return parsed, nil
	}

	cerr := newHTTPError(resp.StatusCode, resp.Data, parsed)
	log.Debug().Int("status", resp.StatusCode).Str("detail", cerr.Detail).Dur("elapsed", elapsed).Msg("request returned an error status")
	re.metrics.observeRequest(req.Endpoint, string(cerr.Kind), elapsed, true)
	return nil, cerr
}

func buildRequest(req OutgoingRequest, token *oauth2.Token, requestID string) (*NormalizedRequest, error) {
	headers := make(http.Header, len(req.Headers)+3)
	for k, vals := range req.Headers {
		for _, v := range vals {
			headers.Add(k, v)
		}
	}
	headers.Set("Content-Type", "application/json")
	if token != nil {
		headers.Set("Authorization", authorizationValue(token))
	}
	headers.Set(HeaderRequestID, requestID)

	var body []byte
	if req.Payload != nil {
		b, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, oops.Code("encode_payload").With("endpoint", req.Endpoint).Wrapf(err, "encode request payload")
		}
		body = b
	}

	return &NormalizedRequest{
		Method:   req.Method,
		Endpoint: req.Endpoint,
		Headers:  headers,
		Body:     body,
	}, nil
}

type callResult struct {
	resp *NormalizedResponse
	err  error
}

// callWithDeadline runs call under a timeout and returns exactly one outcome.
// The derived context is always cancelled before returning; a result that arrives
// after the deadline lands in the buffered channel and is dropped.
func callWithDeadline(ctx context.Context, timeout time.Duration, call func(context.Context) (*NormalizedResponse, error)) (*NormalizedResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		resp, err := call(callCtx)
		done <- callResult{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if callCtx.Err() != nil {
				return nil, contextError(ctx, r.err)
			}
			return nil, &ClientError{Kind: KindNetwork, Detail: r.err.Error(), Cause: r.err}
		}
		if r.resp == nil {
			return nil, &ClientError{Kind: KindNetwork, Detail: "empty response from transport"}
		}
		return r.resp, nil
	case <-callCtx.Done():
		return nil, contextError(ctx, callCtx.Err())
	}
}

// contextError tells a caller cancellation apart from a deadline.
func contextError(parent context.Context, cause error) *ClientError {
	if errors.Is(parent.Err(), context.Canceled) {
		return &ClientError{Kind: KindCanceled, Detail: detailCanceled, Cause: cause}
	}
	return &ClientError{Kind: KindTimeout, Detail: detailTimeout, Cause: cause}
}
