package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/target/medsurge/internal/domain/invalidation"
	"github.com/target/medsurge/internal/ports"
	"golang.org/x/oauth2"
)

// HeaderRequestID is attached to every outgoing call that lacks one.
const HeaderRequestID = "X-Request-ID"

// ReasonHTTP401 tags invalidations caused by a backend 401.
const ReasonHTTP401 = "http_401"

// DefaultPublicPaths are entry points where a 401 is an expected answer and
// must not force a logout.
var DefaultPublicPaths = []string{"/login", "/signup", "/register"}

// InvalidationTransportOptions configures an InvalidationTransport.
type InvalidationTransportOptions struct {
	// Base performs the request; http.DefaultTransport when nil.
	Base      http.RoundTripper
	Store     ports.CredentialStore
	Publisher invalidation.Publisher
	Logger    *slog.Logger
	// PublicPaths overrides DefaultPublicPaths.
	PublicPaths []string
}

// InvalidationTransport is the http.RoundTripper for backend data calls.
// It attaches the stored bearer credential, and when the backend answers 401
// it drops the credential and announces a forced logout.
//
// The identity gateway must not use this transport: a rejected login is not
// an invalidation.
type InvalidationTransport struct {
	base        http.RoundTripper
	store       ports.CredentialStore
	publisher   invalidation.Publisher
	logger      *slog.Logger
	publicPaths []string
}

var errTransportStoreRequired = errors.New("invalidation transport: credential store is required")

// NewInvalidationTransport validates opts and builds the transport.
func NewInvalidationTransport(opts InvalidationTransportOptions) (*InvalidationTransport, error) {
	if opts.Store == nil {
		return nil, errTransportStoreRequired
	}
	t := &InvalidationTransport{
		base:        opts.Base,
		store:       opts.Store,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		publicPaths: opts.PublicPaths,
	}
	if t.base == nil {
		t.base = http.DefaultTransport
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if len(t.publicPaths) == 0 {
		t.publicPaths = DefaultPublicPaths
	}
	return t, nil
}

// RoundTrip implements http.RoundTripper. The caller's request is never mutated.
func (t *InvalidationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cred, err := t.store.Get(ctx)
	if err != nil {
		// Without a readable credential the call goes out anonymous.
		t.logger.WarnContext(ctx, "credential store read failed", "error", err)
	}

	out := req.Clone(ctx)
	if !cred.IsZero() {
		(&oauth2.Token{AccessToken: string(cred), TokenType: "Bearer"}).SetAuthHeader(out)
	}
	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.invalidate(ctx, out, !cred.IsZero())
	}
	return resp, nil
}

func (t *InvalidationTransport) invalidate(ctx context.Context, req *http.Request, hadCredential bool) {
	// The session layer clears the store as well; clearing here first means a
	// concurrent call can no longer pick up the rejected credential.
	if hadCredential {
		if err := t.store.Clear(context.WithoutCancel(ctx)); err != nil {
			t.logger.WarnContext(ctx, "credential clear after 401 failed", "error", err)
		}
	}

	location := LocationFromContext(ctx)
	if t.isPublic(req.URL.Path) || t.isPublic(location) {
		t.logger.DebugContext(ctx, "401 on public entry point, not forcing logout",
			"path", req.URL.Path, "location", location)
		return
	}
	if t.publisher == nil {
		return
	}
	t.publisher.Publish(ctx, invalidation.Event{
		Kind:   invalidation.EventLogout,
		Reason: ReasonHTTP401,
		Source: req.URL.Path,
	})
}

// isPublic reports whether path contains a public entry as whole path
// segments. Query and fragment are ignored.
func (t *InvalidationTransport) isPublic(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return false
	}
	path = strings.ToLower(path)
	for _, p := range t.publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") ||
			strings.HasSuffix(path, p) || strings.Contains(path, p+"/") {
			return true
		}
	}
	return false
}
