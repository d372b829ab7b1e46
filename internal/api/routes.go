// Package api - HTTP поверхность сервера: маршруты и их зависимости.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orion-brain/internal/api/handlers"
	"orion-brain/internal/api/middleware"
	"orion-brain/internal/websocket"
)

// Pinger проверяет доступность БД для readiness probe.
// *sql.DB подходит как есть.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Engine        handlers.RunTrigger
	Positions     handlers.PositionReader
	Notifications handlers.NotificationReader
	Hub           *websocket.Hub
	DB            Pinger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── POST /run - запустить прогон движка (pairs, force)
//	├── /positions/
//	│   ├── GET / - список позиций (?status=open, ?limit=N)
//	│   └── GET /{id} - одна позиция
//	└── /notifications/
//	    ├── GET / - журнал уведомлений (?pair=EURUSD, ?limit=N)
//	    └── DELETE / - очистить журнал
//
// /ws/stream - WebSocket для real-time обновлений
// /health    - liveness probe
// /readyz    - readiness probe (проверяет БД)
// /metrics   - Prometheus метрики
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	api := router.PathPrefix("/api/v1").Subrouter()

	if deps != nil && deps.Engine != nil {
		var hub handlers.RunReportBroadcaster
		if deps.Hub != nil {
			hub = deps.Hub
		}
		runHandler := handlers.NewRunHandler(deps.Engine, hub)
		api.HandleFunc("/run", runHandler.TriggerRun).Methods("POST")
	}

	if deps != nil && deps.Positions != nil {
		positionHandler := handlers.NewPositionHandler(deps.Positions)
		api.HandleFunc("/positions", positionHandler.GetPositions).Methods("GET")
		api.HandleFunc("/positions/{id}", positionHandler.GetPosition).Methods("GET")
	}

	if deps != nil && deps.Notifications != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps == nil || deps.DB == nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.DB.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
