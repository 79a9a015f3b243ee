package rest

import "net/http"

const pong = "pong"

// Ping - liveness probe for load balancers and compose healthchecks.
func (that *handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(pong)); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}
