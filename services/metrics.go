package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	predictionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postal_predictions_generated_total",
		Help: "Total number of predictions computed, by entity kind.",
	}, []string{"kind"})
	predictionsNotFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postal_predictions_not_found_total",
		Help: "Total number of prediction requests for unknown entities.",
	}, []string{"kind"})
	predictionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postal_predictions_failed_total",
		Help: "Total number of prediction failures.",
	}, []string{"kind"})
	predictionsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postal_predictions_logged_total",
		Help: "Total number of predictions appended to the log.",
	}, []string{"kind"})
	predictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "postal_prediction_duration_seconds",
		Help:    "Duration of a full prediction request.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
	})
)
