package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daycare",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daycare",
			Name:      "bookings_created_total",
			Help:      "Bookings admitted, by service kind.",
		},
		[]string{"service_kind"},
	)

	bookingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daycare",
			Name:      "bookings_rejected_total",
			Help:      "Booking requests turned away, by reason.",
		},
		[]string{"reason"},
	)

	checkoutsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daycare",
			Name:      "checkouts_completed_total",
			Help:      "Committed checkouts, by payment method.",
		},
		[]string{"method"},
	)

	checkoutReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "daycare",
			Name:      "checkout_replays_total",
			Help:      "Checkouts answered from a previously committed payment.",
		},
	)

	checkoutAmount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daycare",
			Name:      "checkout_amount_cents",
			Help:      "Checkout totals in cents.",
			Buckets:   []float64{1_000, 2_500, 5_000, 10_000, 25_000, 50_000, 100_000},
		},
		[]string{"method"},
	)

	walletLoads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "daycare",
			Name:      "wallet_loads_total",
			Help:      "Accepted wallet loads.",
		},
	)

	pointsCappedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "daycare",
			Name:      "points_capped_total",
			Help:      "Loyalty points forfeited to the balance cap.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingsRejected,
			checkoutsCompleted,
			checkoutReplays,
			checkoutAmount,
			walletLoads,
			pointsCappedTotal,
		)
	})
}

// IncHTTP increments the request counter for an endpoint and status class.
func IncHTTP(endpoint string, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncBookingCreated counts an admitted booking.
func IncBookingCreated(serviceKind string) {
	bookingsCreated.WithLabelValues(serviceKind).Inc()
}

// IncBookingRejected counts a turned-away booking request.
func IncBookingRejected(reason string) {
	bookingsRejected.WithLabelValues(reason).Inc()
}

// ObserveCheckout records a committed checkout.
func ObserveCheckout(method string, totalCents int64) {
	checkoutsCompleted.WithLabelValues(method).Inc()
	checkoutAmount.WithLabelValues(method).Observe(float64(totalCents))
}

// IncCheckoutReplay counts an idempotent replay.
func IncCheckoutReplay() {
	checkoutReplays.Inc()
}

// IncWalletLoad counts an accepted wallet load.
func IncWalletLoad() {
	walletLoads.Inc()
}

// AddPointsCapped accumulates points lost to the balance cap.
func AddPointsCapped(points int64) {
	if points <= 0 {
		return
	}
	pointsCappedTotal.Add(float64(points))
}
