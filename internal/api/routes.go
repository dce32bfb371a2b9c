package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"condorledger/internal/api/handlers"
	"condorledger/internal/api/middleware"
	"condorledger/internal/service"
	"condorledger/internal/websocket"
)

// healthTimeout - предел проверки хранилища в /health
const healthTimeout = 2 * time.Second

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	LedgerService service.LedgerServiceInterface
	AdminService  service.AdminServiceInterface
	Hub           *websocket.Hub

	AdminAuth      middleware.AdminAuthConfig
	WebhookSecret  string
	AllowedOrigins []string

	// HealthCheck проверяет доступность хранилища; nil - только liveness
	HealthCheck func(ctx context.Context) error
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── GET  /trades/{symbol}       - последние сделки (?limit, ?status)
//	├── GET  /trades/{symbol}/{id}  - одна сделка
//	├── GET  /stats/{symbol}        - статистика журнала
//	├── GET  /config                - конфигурации всех символов
//	├── GET  /config/{symbol}       - конфигурация бота
//	├── GET  /dashboard/{symbol}    - сводка с обнулением при сбое
//	├── /admin/ (Basic auth)
//	│   ├── POST /update-trade
//	│   ├── POST /delete-trade
//	│   └── POST /update-level
//	└── /webhook/trade-alert
//	    ├── GET  - проверка доступности
//	    └── POST - новая сделка от бота (X-Webhook-Secret)
//
// /ws/stream - WebSocket ledgerUpdate
// /metrics   - Prometheus
// /health    - liveness и проверка хранилища
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. AdminAuth (только /api/v1/admin)
//
// Маршруты /api/v1 принимают OPTIONS, чтобы preflight дошел до CORS middleware.
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(deps.AllowedOrigins))

	api := router.PathPrefix("/api/v1").Subrouter()

	if deps.LedgerService != nil {
		ledgerHandler := handlers.NewLedgerHandler(deps.LedgerService)
		api.HandleFunc("/trades/{symbol}", ledgerHandler.GetTrades).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/trades/{symbol}/{id}", ledgerHandler.GetTrade).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/stats/{symbol}", ledgerHandler.GetStats).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/config", ledgerHandler.GetAllConfigs).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/config/{symbol}", ledgerHandler.GetConfig).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/dashboard/{symbol}", ledgerHandler.GetDashboard).Methods(http.MethodGet, http.MethodOptions)

		webhookHandler := handlers.NewWebhookHandler(deps.LedgerService, deps.WebhookSecret)
		api.HandleFunc("/webhook/trade-alert", webhookHandler.Status).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/webhook/trade-alert", webhookHandler.TradeAlert).Methods(http.MethodPost, http.MethodOptions)
	}

	if deps.AdminService != nil {
		adminHandler := handlers.NewAdminHandler(deps.AdminService)
		admin := api.PathPrefix("/admin").Subrouter()
		admin.Use(middleware.AdminAuth(deps.AdminAuth))
		admin.HandleFunc("/update-trade", adminHandler.UpdateTrade).Methods(http.MethodPost, http.MethodOptions)
		admin.HandleFunc("/delete-trade", adminHandler.DeleteTrade).Methods(http.MethodPost, http.MethodOptions)
		admin.HandleFunc("/update-level", adminHandler.UpdateLevel).Methods(http.MethodPost, http.MethodOptions)
	}

	if deps.Hub != nil {
		router.HandleFunc("/ws/stream", deps.Hub.ServeWS).Methods(http.MethodGet)
	}

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", healthHandler(deps.HealthCheck)).Methods(http.MethodGet)

	return router
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				http.Error(w, "ledger store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
