// Package marketdata предоставляет доступ к поставщику рыночных данных.
package marketdata

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClientConfig содержит настройки HTTP клиента поставщика данных
type HTTPClientConfig struct {
	// Таймауты соединения
	ConnectTimeout time.Duration // таймаут установки TCP соединения (default: 5s)
	ReadTimeout    time.Duration // таймаут чтения ответа (default: 15s)
	TotalTimeout   time.Duration // общий таймаут операции (default: 30s)

	// Connection pooling
	MaxIdleConns        int           // максимум idle соединений (default: 20)
	MaxIdleConnsPerHost int           // максимум idle соединений на хост (default: 10)
	IdleConnTimeout     time.Duration // таймаут простоя соединения (default: 90s)

	// TLS
	TLSHandshakeTimeout time.Duration // таймаут TLS handshake (default: 5s)

	// Keep-Alive
	KeepAliveInterval time.Duration // интервал Keep-Alive (default: 30s)
}

// DefaultHTTPClientConfig возвращает конфигурацию по умолчанию.
// Запросы исторических свечей могут возвращать тысячи баров - таймаут
// чтения заметно больше, чем у типичного торгового API.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    15 * time.Second,
		TotalTimeout:   30 * time.Second,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout: 5 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// NewHTTPClient создаёт HTTP клиент с connection pooling для длинных
// серий постраничных запросов к одному хосту
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: config.KeepAliveInterval,
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},

		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,

		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},

		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: config.ReadTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.TotalTimeout,
	}
}
