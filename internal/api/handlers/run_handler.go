package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"

	"orion-brain/internal/models"
	"orion-brain/pkg/utils"
)

// RunTrigger - интерфейс движка, нужный HTTP триггеру прогонов
type RunTrigger interface {
	RunOnce(ctx context.Context, pairs []string, force bool) *models.RunReport
}

// RunReportBroadcaster рассылает итог прогона WebSocket клиентам
type RunReportBroadcaster interface {
	BroadcastRunReport(report *models.RunReport)
}

// RunHandler отвечает за ручной запуск прогона движка
//
// Endpoints:
// - POST /api/v1/run - прогон по вселенной из конфигурации
// - POST /api/v1/run?pairs=EURUSD,GBPUSD&force=true - явная вселенная
//
// Прогон последовательный и небыстрый (сетевые запросы по каждой паре),
// поэтому одновременно выполняется не больше одного: повторный запрос
// во время прогона получает 409 Conflict.
type RunHandler struct {
	engine RunTrigger
	hub    RunReportBroadcaster

	running atomic.Bool
}

// NewRunHandler создает новый RunHandler
func NewRunHandler(engine RunTrigger, hub RunReportBroadcaster) *RunHandler {
	return &RunHandler{engine: engine, hub: hub}
}

// runRequest - тело запроса запуска (все поля опциональны)
type runRequest struct {
	Pairs []string `json:"pairs"`
	Force bool     `json:"force"`
}

// TriggerRun запускает один прогон движка
//
// POST /api/v1/run
//
// Параметры (query или JSON тело):
// - pairs: список пар через запятую (пусто = вселенная из конфигурации)
// - force: true отключает привязку к границе 15m свечи
//
// HTTP коды:
// - 200 OK: прогон завершен, возвращает RunReport
// - 400 Bad Request: невалидные пары в запросе
// - 409 Conflict: прогон уже выполняется
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	// query параметры перекрывают тело
	if qp := r.URL.Query().Get("pairs"); qp != "" {
		req.Pairs = nil
		for _, p := range strings.Split(qp, ",") {
			p = utils.NormalizePairSymbol(p)
			if p != "" {
				req.Pairs = append(req.Pairs, p)
			}
		}
	}
	if qf := r.URL.Query().Get("force"); qf != "" {
		req.Force = qf == "true" || qf == "1"
	}

	if len(req.Pairs) > 0 {
		if err := utils.ValidateUniverse(req.Pairs); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if !h.running.CompareAndSwap(false, true) {
		respondWithError(w, http.StatusConflict, "Run already in progress")
		return
	}
	defer h.running.Store(false)

	report := h.engine.RunOnce(r.Context(), req.Pairs, req.Force)

	if h.hub != nil {
		h.hub.BroadcastRunReport(report)
	}

	respondWithJSON(w, http.StatusOK, report)
}
