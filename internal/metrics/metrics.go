// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 消費側（account.MetricsRecorder、middleware.StatusReporter、
// mail.LatencyObserver）のインターフェースをすべて満たす。
type Collector struct {
	loginAttempts    *prometheus.CounterVec
	codesIssued      prometheus.Counter
	codeChecks       *prometheus.CounterVec
	registrations    prometheus.Counter
	httpStatus       *prometheus.CounterVec
	mailDispatchTime prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "applyman_login_attempts_total",
			Help: "ログイン試行の合計数（成否別）",
		}, []string{"result"}),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "applyman_verification_codes_issued_total",
			Help: "発行された検証コードの合計数",
		}),
		codeChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "applyman_verification_checks_total",
			Help: "検証コード照合の合計数（成否別）",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "applyman_registrations_total",
			Help: "検証を通過して永続化されたアカウント登録の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "applyman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		mailDispatchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "applyman_mail_dispatch_latency_seconds",
			Help:    "検証コードメール配送のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.codesIssued,
		c.codeChecks,
		c.registrations,
		c.httpStatus,
		c.mailDispatchTime,
	)

	return c
}

// RecordLoginAttempt はログイン試行を成否別に記録する。
func (c *Collector) RecordLoginAttempt(success bool) {
	c.loginAttempts.WithLabelValues(resultLabel(success)).Inc()
}

// RecordCodeIssued は検証コード発行を記録する。
func (c *Collector) RecordCodeIssued() {
	c.codesIssued.Inc()
}

// RecordCodeCheck は検証コード照合を成否別に記録する。
func (c *Collector) RecordCodeCheck(matched bool) {
	c.codeChecks.WithLabelValues(resultLabel(matched)).Inc()
}

// RecordRegistration はアカウント登録の完了を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordMailDispatchLatency はメール配送のレイテンシを記録する。
func (c *Collector) RecordMailDispatchLatency(duration time.Duration) {
	c.mailDispatchTime.Observe(duration.Seconds())
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
