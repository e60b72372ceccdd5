package monitoring

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupMetricsEndpoint exposes the Prometheus registry at /metrics on the given router
func SetupMetricsEndpoint(router *mux.Router) {
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}
