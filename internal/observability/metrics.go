package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movementsTotal  *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	ledgerDrift     prometheus.Gauge
}

var _ movement.Observer = (*Metrics)(nil)

// NewMetrics menginisialisasi registry, metrik HTTP dan metrik ledger.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_movements_total",
		Help: "Jumlah catatan pergerakan stok per jenis.",
	}, []string{"movement_type"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_line_rejections_total",
		Help: "Jumlah baris dokumen yang ditolak per jenis pelanggaran.",
	}, []string{"kind"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "odyssey_ledger_drift_keys",
		Help: "Jumlah kunci ledger yang saldonya tidak cocok dengan replay terakhir.",
	})
	registry.MustRegister(requests, duration, movements, rejections, drift)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		movementsTotal:  movements,
		rejectionsTotal: rejections,
		ledgerDrift:     drift,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// MovementRecorded menghitung satu catatan pergerakan yang ditulis engine.
func (m *Metrics) MovementRecorded(t inventory.MovementType) {
	if m == nil {
		return
	}
	m.movementsTotal.WithLabelValues(string(t)).Inc()
}

// LineRejected menghitung satu baris yang ditolak engine.
func (m *Metrics) LineRejected(k movement.Kind) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(string(k)).Inc()
}

// SetLedgerDrift menyimpan hasil verifikasi ledger terakhir.
func (m *Metrics) SetLedgerDrift(keys int) {
	if m == nil {
		return
	}
	m.ledgerDrift.Set(float64(keys))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
