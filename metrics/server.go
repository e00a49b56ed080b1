package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
)

// Register adds the /metrics endpoint to mux.
func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}

// Serve runs a metrics only web service on addr until it fails.
func Serve(addr string) {
	mux := http.NewServeMux()
	Register(mux)
	logger.Infof("Starting metrics webservice on %s...", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("Metrics webservice stopped [%v]", err)
	}
}
