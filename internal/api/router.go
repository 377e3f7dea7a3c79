package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/ibdash/internal/api/handlers"
	"github.com/wonny/ibdash/pkg/logger"
)

// Handlers groups the endpoint handlers the router mounts
type Handlers struct {
	Orders  *handlers.OrderHandler
	Account *handlers.AccountHandler
	Market  *handlers.MarketHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routes are registered in this function only
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Account
	api.HandleFunc("/dashboard", h.Account.Dashboard).Methods("GET")
	api.HandleFunc("/portfolio", h.Account.Portfolio).Methods("GET")
	api.HandleFunc("/account/exposure", h.Account.Exposure).Methods("GET")
	api.HandleFunc("/account/drawdown", h.Account.Drawdown).Methods("GET")
	api.HandleFunc("/context/{pair}", h.Account.PairContext).Methods("GET")

	// Orders
	api.HandleFunc("/orders", h.Orders.ListOrders).Methods("GET")
	api.HandleFunc("/orders", h.Orders.PlaceOrder).Methods("POST")
	api.HandleFunc("/orders/preview", h.Orders.Preview).Methods("POST")
	api.HandleFunc("/orders/{id}", h.Orders.ModifyOrder).Methods("PATCH")
	api.HandleFunc("/orders/{id}", h.Orders.CancelOrder).Methods("DELETE")

	// Market data
	api.HandleFunc("/lookup", h.Market.Lookup).Methods("GET")
	api.HandleFunc("/contracts/{conid}/{period}", h.Market.Contract).Methods("GET")
	api.HandleFunc("/watchlists", h.Market.Watchlists).Methods("GET")
	api.HandleFunc("/watchlists", h.Market.CreateWatchlist).Methods("POST")
	api.HandleFunc("/watchlists/{id}", h.Market.Watchlist).Methods("GET")
	api.HandleFunc("/watchlists/{id}", h.Market.DeleteWatchlist).Methods("DELETE")
	api.HandleFunc("/scanner/params", h.Market.ScannerParams).Methods("GET")
	api.HandleFunc("/scanner/run", h.Market.RunScanner).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "ibdash-api",
	})
}

// statusRecorder captures the response status for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
