package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約受付の総数（result: admitted または拒否コード）
	ReservationAdmissionsTotal *prometheus.CounterVec

	// 予約の状態遷移の総数（action, result: success/拒否コード）
	ReservationTransitionsTotal *prometheus.CounterVec

	// 施設ロックの取得時間（backend: redis/postgres, status: success/failed）
	SpaceLockDuration *prometheus.HistogramVec

	// 空き枠キャッシュの参照結果（result: hit/miss/error）
	SlotCacheRequestsTotal *prometheus.CounterVec

	// アウトボックスから配信したイベント数（status: published/failed）
	OutboxEventsTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationAdmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_admissions_total",
				Help: "Total number of reservation requests by admission result",
			},
			[]string{"result"},
		),
		ReservationTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_transitions_total",
				Help: "Total number of reservation lifecycle transitions",
			},
			[]string{"action", "result"},
		),
		SpaceLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "space_lock_duration_seconds",
				Help:    "Time spent acquiring the per-space booking lock",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"backend", "status"},
		),
		SlotCacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slot_cache_requests_total",
				Help: "Slot snapshot cache lookups by result",
			},
			[]string{"result"},
		),
		OutboxEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbox_events_total",
				Help: "Reservation events relayed from the outbox",
			},
			[]string{"status"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationAdmissionsTotal,
		m.ReservationTransitionsTotal,
		m.SpaceLockDuration,
		m.SlotCacheRequestsTotal,
		m.OutboxEventsTotal,
	)

	return m
}

// 以下のヘルパーは nil レシーバでも安全に呼べる（テストや未初期化時は何もしない）

// ObserveAdmission は予約受付の結果を記録する
func (m *Metrics) ObserveAdmission(result string) {
	if m == nil {
		return
	}
	m.ReservationAdmissionsTotal.WithLabelValues(result).Inc()
}

// ObserveTransition は状態遷移の結果を記録する
func (m *Metrics) ObserveTransition(action, result string) {
	if m == nil {
		return
	}
	m.ReservationTransitionsTotal.WithLabelValues(action, result).Inc()
}

// ObserveLock は施設ロックの取得時間を記録する
func (m *Metrics) ObserveLock(backend string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.SpaceLockDuration.WithLabelValues(backend, status).Observe(time.Since(started).Seconds())
}

// ObserveSlotCache は空き枠キャッシュの参照結果を記録する
func (m *Metrics) ObserveSlotCache(result string) {
	if m == nil {
		return
	}
	m.SlotCacheRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveOutbox は配信したイベント数を記録する
func (m *Metrics) ObserveOutbox(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.OutboxEventsTotal.WithLabelValues(status).Add(float64(n))
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
