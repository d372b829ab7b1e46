package middleware

import (
	"net/http"
	"os"
	"strings"
)

// allowedOrigins содержит список разрешенных доменов для CORS.
// В production дополняется из переменной окружения CORS_ALLOWED_ORIGINS.
var allowedOrigins = map[string]bool{
	"http://localhost:3000": true,
	"http://127.0.0.1:3000": true,
	"http://localhost:8080": true,
	"http://127.0.0.1:8080": true,
	"http://localhost:5173": true, // Vite dev server
	"http://127.0.0.1:5173": true,
}

func init() {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}
}

func isOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	return allowedOrigins[origin]
}

// CORS настраивает Cross-Origin заголовки для браузерного UI.
//
// Разрешенным origins выставляется конкретный Access-Control-Allow-Origin
// с credentials; запросы без Origin (curl, мониторинг) проходят как есть.
// Для неразрешенных origins заголовки не ставятся - браузер заблокирует.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if isOriginAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
