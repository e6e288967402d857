package main

import (
	"encoding/json"
	"net/http"

	"github.com/angeloszaimis/service-mesh/internal/dispatcher"
	"github.com/angeloszaimis/service-mesh/internal/handler"
	"github.com/angeloszaimis/service-mesh/internal/instance"
	"github.com/angeloszaimis/service-mesh/internal/metrics"
	"github.com/angeloszaimis/service-mesh/internal/registry"
)

func setupRouter(dispatchHandler *handler.DispatchHandler, reg *registry.Registry, disp *dispatcher.Dispatcher, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/dispatch", dispatchHandler.ServeHTTP)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.HandleFunc("/circuits", metrics.CircuitsHandler(disp.Breakers()))
	mux.HandleFunc("/services", servicesHandler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// servicesHandler dumps every known instance of every service,
// regardless of health.
func servicesHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string][]instance.Snapshot)
		for _, name := range reg.ServiceNames() {
			services[name] = reg.GetAllInstances(name)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(services); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
