package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

func TestSetupRoutesProbes(t *testing.T) {
	router := SetupRoutes(&Dependencies{DB: &mockPinger{}})

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
		}
	}
}

func TestReadyzUnavailableDatabase(t *testing.T) {
	router := SetupRoutes(&Dependencies{DB: &mockPinger{err: errors.New("dial refused")}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestUnwiredRoutesAbsent(t *testing.T) {
	// без зависимостей API маршруты не регистрируются
	router := SetupRoutes(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Error("run endpoint must not be wired without an engine")
	}
}
