// Package metrics provides Prometheus metrics for the subscription bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TelegramUpdatesTotal tracks inbound chat updates by event kind
	TelegramUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subscription_bot",
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Total number of Telegram updates dispatched by event kind",
		},
		[]string{"kind"},
	)

	// TelegramDispatchErrorsTotal tracks updates whose processing failed
	TelegramDispatchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subscription_bot",
			Subsystem: "telegram",
			Name:      "dispatch_errors_total",
			Help:      "Total number of Telegram updates that failed during processing",
		},
	)

	// CheckoutSessionsTotal tracks checkout session creation by plan and status
	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subscription_bot",
			Subsystem: "stripe",
			Name:      "checkout_sessions_total",
			Help:      "Total number of checkout sessions requested by plan and status",
		},
		[]string{"plan", "status"},
	)

	// StripeWebhooksTotal tracks payment webhooks by event type and outcome
	StripeWebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subscription_bot",
			Subsystem: "stripe",
			Name:      "webhooks_total",
			Help:      "Total number of Stripe webhooks by event type and outcome",
		},
		[]string{"event_type", "outcome"},
	)
)

func RecordUpdate(kind string) {
	TelegramUpdatesTotal.WithLabelValues(kind).Inc()
}

func RecordDispatchError() {
	TelegramDispatchErrorsTotal.Inc()
}

func RecordCheckout(plan string, err error) {
	status := "created"
	if err != nil {
		status = "failed"
	}
	CheckoutSessionsTotal.WithLabelValues(plan, status).Inc()
}

func RecordWebhook(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	StripeWebhooksTotal.WithLabelValues(eventType, outcome).Inc()
}
