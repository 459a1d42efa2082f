package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	likesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muzz",
		Subsystem: "match",
		Name:      "likes_total",
		Help:      "Like attempts by result.",
	}, []string{"result"})

	matchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "muzz",
		Subsystem: "match",
		Name:      "matches_total",
		Help:      "Likes that completed a match.",
	})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muzz",
		Subsystem: "match",
		Name:      "messages_total",
		Help:      "Message send attempts by result.",
	}, []string{"result"})

	unlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muzz",
		Subsystem: "match",
		Name:      "contact_unlocks_total",
		Help:      "Contact unlock outcomes by method.",
	}, []string{"method"})

	dailyPicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muzz",
		Subsystem: "match",
		Name:      "daily_picks_total",
		Help:      "Daily pick requests by outcome.",
	}, []string{"outcome"})

	nearbyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muzz",
		Subsystem: "match",
		Name:      "nearby_queries_total",
		Help:      "Nearby searches by status.",
	}, []string{"status"})
)
