// Package middleware - сквозные HTTP middleware: recovery, логирование, CORS.
package middleware

import (
	"net/http"
	"runtime/debug"

	"orion-brain/pkg/utils"
)

// Recovery перехватывает panic в handlers и предотвращает падение сервера.
// Клиент получает 500, stack trace уходит в лог.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.Error("panic in HTTP handler",
					utils.String("method", r.Method),
					utils.String("path", r.URL.Path),
					utils.Any("panic", err),
					utils.String("stack", string(debug.Stack())))

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
