package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"orion-brain/internal/models"
	"orion-brain/internal/repository"
)

// PositionReader - срез хранилища позиций, нужный API
type PositionReader interface {
	ListOpen() ([]*models.Position, error)
	ListRecent(limit int) ([]*models.Position, error)
	GetByID(id string) (*models.Position, error)
}

// PositionHandler отвечает за чтение позиций
//
// Endpoints:
// - GET /api/v1/positions - последние позиции (открытые и закрытые)
// - GET /api/v1/positions?status=open - только открытые
// - GET /api/v1/positions?limit=50 - с ограничением количества
// - GET /api/v1/positions/{id} - одна позиция по id
type PositionHandler struct {
	positions PositionReader
}

// NewPositionHandler создает новый PositionHandler
func NewPositionHandler(positions PositionReader) *PositionHandler {
	return &PositionHandler{positions: positions}
}

// GetPositionsResponse представляет ответ списка позиций
type GetPositionsResponse struct {
	Positions []*models.Position `json:"positions"`
	Total     int                `json:"total"`
}

// GetPositions возвращает список позиций
//
// GET /api/v1/positions
//
// Query параметры:
// - status (string): open - только открытые позиции
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка хранилища
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if lp := r.URL.Query().Get("limit"); lp != "" {
		if parsed, err := strconv.Atoi(lp); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	var (
		positions []*models.Position
		err       error
	)
	if r.URL.Query().Get("status") == "open" {
		positions, err = h.positions.ListOpen()
	} else {
		positions, err = h.positions.ListRecent(limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get positions: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetPositionsResponse{
		Positions: positions,
		Total:     len(positions),
	})
}

// GetPosition возвращает одну позицию по id
//
// GET /api/v1/positions/{id}
//
// HTTP коды:
// - 200 OK: успешно
// - 404 Not Found: позиция не найдена
// - 500 Internal Server Error: ошибка хранилища
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := h.positions.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrPositionNotFound) {
			respondWithError(w, http.StatusNotFound, "Position not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get position: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}
