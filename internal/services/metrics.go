package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swapsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skillswap_swaps_created_total",
			Help: "Total number of swap requests created",
		},
	)

	swapTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillswap_swap_transitions_total",
			Help: "Swap status changes by source and target status",
		},
		[]string{"from", "to"},
	)

	feedbackSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillswap_feedback_submitted_total",
			Help: "Feedback submissions by rating",
		},
		[]string{"rating"},
	)

	ratingUpdateFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skillswap_rating_update_failures_total",
			Help: "Feedback stored whose rating update did not persist",
		},
	)

	registrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skillswap_registrations_total",
			Help: "Total number of user registrations",
		},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillswap_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
)
