package middleware

import (
	"net/http"
	"time"

	"orion-brain/pkg/utils"
)

// responseWriter перехватывает статус и размер ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logging логирует входящие HTTP запросы: метод, путь, статус,
// длительность, адрес клиента и размер ответа
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		utils.Info("http request",
			utils.String("method", r.Method),
			utils.String("path", r.URL.Path),
			utils.Int("status", wrapped.statusCode),
			utils.String("duration", time.Since(start).String()),
			utils.String("remote", r.RemoteAddr),
			utils.Int64("bytes", wrapped.written))
	})
}
