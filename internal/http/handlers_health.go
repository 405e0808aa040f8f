package httpx

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

// healthHandler reports liveness plus the current session phase, so a
// supervisor can tell a console that is still checking its credential.
func healthHandler(sessions SessionSnapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Session: string(sessions.Snapshot().Phase),
		})
	}
}
