package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsQueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "notifier",
		Name:      "queued_total",
		Help:      "Notifications accepted into the delivery queue",
	}, []string{"type"})

	notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "notifier",
		Name:      "dropped_total",
		Help:      "Notifications dropped on queue overflow",
	})

	notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "notifier",
		Name:      "telegram_sent_total",
		Help:      "Messages delivered to Telegram",
	})
)
