package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/domain/guard"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.String("request_id", w.Header().Get(HeaderRequestID)),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestContext echoes or assigns an X-Request-ID and records the request
// location so outgoing backend calls can tell where they came from.
func RequestContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)
			ctx := WithLocation(r.Context(), r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionSnapshotter is the read side of the session manager used by the guard.
type SessionSnapshotter interface {
	Snapshot() domainauth.Session
}

// checkingRetryAfter is the Retry-After hint while the session is loading.
const checkingRetryAfter = 1

// RequireRegion applies route guard decisions to every path covered by table.
// Unmatched paths pass through untouched.
//
//   - checking: 503 with Retry-After, the request may be repeated shortly
//   - not signed in: 303 to the login page carrying redirect_uri
//   - wrong role: 303 to the unauthorized page
func RequireRegion(g *guard.Guard, table *guard.RouteTable, sessions SessionSnapshotter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			region, ok := table.Match(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			snap := sessions.Snapshot()
			d := g.Evaluate(snap, region, safeRedirectPath(r.URL.RequestURI()))
			switch d.Outcome {
			case guard.OutcomeAllowed:
				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), snap)))
			case guard.OutcomeChecking:
				w.Header().Set("Retry-After", strconv.Itoa(checkingRetryAfter))
				WriteJSON(w, http.StatusServiceUnavailable, d)
			case guard.OutcomeDeniedUnauthenticated:
				http.Redirect(w, r, g.LoginURL(d.From), http.StatusSeeOther)
			default:
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
			}
		})
	}
}

// safeRedirectPath only allows local absolute paths as redirect targets.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}

// Chain applies middleware so the first one listed is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
