// Package api rowcodec REST API
//
// @title           rowcodec REST API
// @version         1.0.0
// @description     Encode byte payloads, store rows and compare them under a schema.
// @host            localhost:9200
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
)

const metricsInterval = 30 * time.Second

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	<title>rowcodec API Documentation</title>
	<link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	<script>
	  window.onload = function() {
	    SwaggerUIBundle({
	      url: '/swagger/swagger.json',
	      dom_id: '#swagger-ui',
	      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.presets.standalone]
	    });
	  };
	</script>
</body>
</html>`

// NewRouter builds the HTTP routes for s.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/schema", m.InstrumentHandler("GET", "/api/v1/schema", s.handleSchema))

		r.Post("/bytes/encode", m.InstrumentHandler("POST", "/api/v1/bytes/encode", s.handleEncodeBytes))
		r.Post("/bytes/decode", m.InstrumentHandler("POST", "/api/v1/bytes/decode", s.handleDecodeBytes))

		r.Post("/rows", m.InstrumentHandler("POST", "/api/v1/rows", s.handleCreateRow))
		r.Post("/rows/compare", m.InstrumentHandler("POST", "/api/v1/rows/compare", s.handleCompareRows))
		r.Get("/rows/{id}", m.InstrumentHandler("GET", "/api/v1/rows/{id}", s.handleGetRow))
		r.Put("/rows/{id}", m.InstrumentHandler("PUT", "/api/v1/rows/{id}", s.handleUpdateRow))
		r.Delete("/rows/{id}", m.InstrumentHandler("DELETE", "/api/v1/rows/{id}", s.handleDeleteRow))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swagger/", "/swagger/index.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(swaggerUI))
		case "/swagger/swagger.json":
			doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
			if err != nil {
				s.logger.Errorf("generate swagger doc: %v", err)
				http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(doc))
		default:
			http.NotFound(w, r)
		}
	})

	return r
}

// StartServer serves the API until ctx is cancelled.
func StartServer(ctx context.Context, store RowStore, config ServerConfig, metrics *Metrics) error {
	server, err := NewServer(store, config, metrics)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(config.Bind, strconv.Itoa(config.Port))
	SwaggerInfo.Host = fmt.Sprintf("localhost:%d", config.Port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The updater stops when StartServer returns, including on a failed listen.
	updaterCtx, stopUpdater := context.WithCancel(ctx)
	var updater sync.WaitGroup
	updater.Add(1)
	go func() {
		defer updater.Done()
		server.startMetricsUpdater(updaterCtx)
	}()
	defer func() {
		stopUpdater()
		updater.Wait()
	}()

	errCh := make(chan error, 1)
	go func() {
		server.logger.Infof("listening on %s (metrics at /metrics)", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.logger.Infof("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	}
}

// startMetricsUpdater periodically refreshes the stored row gauge
func (s *Server) startMetricsUpdater(ctx context.Context) {
	s.updateRowCount()

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateRowCount()
		}
	}
}
