package httpx

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/target/medsurge/internal/domain/guard"
)

// BackendPrefix is where the console forwards calls to the backend API.
const BackendPrefix = "/backend"

// RouterServices holds everything the console router needs.
type RouterServices struct {
	Sessions SessionService
	Guard    *guard.Guard
	Routes   *guard.RouteTable
	// Metrics is mounted at /metrics when set (Prometheus backend).
	Metrics http.Handler
	// Backend is mounted under BackendPrefix when set.
	Backend http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the console mux wrapped in the standard middleware chain.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	g := services.Guard
	if g == nil {
		g = guard.Default
	}
	routes := services.Routes
	if routes == nil {
		routes = guard.DefaultRouteTable()
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &SessionHandlers{Svc: services.Sessions}
	registerSessionRoutes(mux, h)

	health := healthHandler(services.Sessions)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}
	if services.Backend != nil {
		mux.Handle(BackendPrefix+"/", services.Backend)
	}

	for _, region := range routes.Regions() {
		rh := RegionHandler(region)
		mux.Handle("GET "+region.Prefix, rh)
		mux.Handle("GET "+region.Prefix+"/", rh)
	}

	return Chain(mux,
		RequestContext(),
		Logging(logger),
		Recover(logger),
		RequireRegion(g, routes, services.Sessions),
	)
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	mux.HandleFunc("GET /api/session", h.Get)
	mux.HandleFunc("POST /api/session/login", h.Login)
	mux.HandleFunc("POST /api/session/logout", h.Logout)
	mux.HandleFunc("POST /api/session/refresh", h.Refresh)
	mux.HandleFunc("POST /api/session/register", h.Register)
	mux.HandleFunc("PUT /api/session/role", h.SwitchRole)
	mux.HandleFunc("GET /api/permissions", h.Permissions)
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("GET /unauthorized", h.UnauthorizedPage)
}

// NewBackendProxy forwards BackendPrefix/* to base through transport, which
// is expected to be an InvalidationTransport. Inbound Authorization headers
// are dropped; the console's stored credential is the only one sent.
func NewBackendProxy(base *url.URL, transport http.RoundTripper, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, BackendPrefix)
			pr.Out.URL.RawPath = ""
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
			pr.SetURL(base)
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "backend call failed", "path", r.URL.Path, "error", err)
			WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "backend_unreachable", Err: err})
		},
	}
}
