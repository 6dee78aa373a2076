package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prajwalbharadwajbm/bidengine/internal/config"
	"github.com/prajwalbharadwajbm/bidengine/internal/endpoint"
	"github.com/prajwalbharadwajbm/bidengine/internal/middleware"
	"github.com/prajwalbharadwajbm/bidengine/internal/transport"
)

const healthCheckTimeout = 2 * time.Second

// Routes builds the HTTP handler: service middlewares, go-kit endpoints and
// the mux router wrapped in the HTTP middlewares.
func Routes(app *application) http.Handler {
	svc := middleware.NewServiceMetricsMiddleware(app.metrics)(app.service)
	svc = middleware.NewLoggingMiddleware(app.logger)(svc)

	router := transport.NewHTTPHandler(endpoint.MakeBidEndpoints(svc), app.health, app.logger)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Use(
		mux.MiddlewareFunc(middleware.NewRequestIDMiddleware().Middleware),
		mux.MiddlewareFunc(middleware.NewMetricsMiddleware(app.metrics).Middleware),
		apiOnly(middleware.NewTimeoutMiddleware(config.AppConfigInstance.BidConfig.RequestTimeout).Middleware),
	)
	return router
}

// apiOnly applies mw to /api routes and leaves health checks and scrapes alone
func apiOnly(mw mux.MiddlewareFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// health reports unhealthy when the campaign store is down and degraded
// when only the cache is.
func (app *application) health(ctx context.Context) transport.HealthReport {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	report := transport.HealthReport{
		Status:  transport.StatusHealthy,
		Service: serviceName,
		Version: config.AppConfigInstance.GeneralConfig.Version,
		Checks:  map[string]any{},
	}

	if err := app.repo.HealthCheck(ctx); err != nil {
		report.Status = transport.StatusUnhealthy
		report.Checks["database"] = err.Error()
	} else {
		report.Checks["database"] = "ok"
	}

	cacheHealth := config.GetCacheHealth(ctx, app.store, app.cacheConfig)
	report.Checks["cache"] = cacheHealth
	cacheOK := !cacheHealth.Redis.Enabled || cacheHealth.Redis.Connected
	app.metrics.SetHealthCheckStatus("cache", cacheOK)
	if !cacheOK && report.Status == transport.StatusHealthy {
		report.Status = transport.StatusDegraded
	}

	return report
}
