package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/nvl/internal/appsheet"
)

// Metrics holds the Prometheus collectors of the admin service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiCalls      *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	storeRows     *prometheus.GaugeVec
	importedRows  prometheus.Counter
	invalidRows   prometheus.Counter
	failedBatches prometheus.Counter
	tagsPrinted   prometheus.Counter
	barcodeErrors prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nvl",
			Name:      "appsheet_calls_total",
			Help:      "AppSheet table API calls by table, action and outcome.",
		}, []string{"table", "action", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nvl",
			Name:      "appsheet_call_duration_seconds",
			Help:      "AppSheet table API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "action"}),
		storeRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nvl",
			Name:      "store_rows",
			Help:      "Rows held by each record store after the last refresh.",
		}, []string{"store"}),
		importedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nvl",
			Name:      "import_rows_submitted_total",
			Help:      "Spreadsheet rows submitted in successful batches.",
		}),
		invalidRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nvl",
			Name:      "import_rows_invalid_total",
			Help:      "Spreadsheet rows skipped for missing required fields.",
		}),
		failedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nvl",
			Name:      "import_batches_failed_total",
			Help:      "Import batches rejected by the remote API.",
		}),
		tagsPrinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nvl",
			Name:      "tags_printed_total",
			Help:      "Warehouse tags rendered for printing.",
		}),
		barcodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nvl",
			Name:      "tag_barcode_errors_total",
			Help:      "Tags rendered without a barcode because encoding failed.",
		}),
	}

	reg.MustRegister(
		m.apiCalls, m.apiLatency, m.storeRows,
		m.importedRows, m.invalidRows, m.failedBatches,
		m.tagsPrinted, m.barcodeErrors,
	)
	return m
}

// ObserveAPICall matches appsheet.Observer.
func (m *Metrics) ObserveAPICall(table string, action appsheet.Action, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.apiCalls.WithLabelValues(table, string(action), outcome).Inc()
	m.apiLatency.WithLabelValues(table, string(action)).Observe(elapsed.Seconds())
}

// StoreRefreshed records the row count of a store.
func (m *Metrics) StoreRefreshed(store string, rows int) {
	if m == nil {
		return
	}
	m.storeRows.WithLabelValues(store).Set(float64(rows))
}

// ImportFinished records the outcome of one import run.
func (m *Metrics) ImportFinished(r *ImportResult) {
	if m == nil || r == nil {
		return
	}
	m.importedRows.Add(float64(r.Processed))
	m.invalidRows.Add(float64(len(r.InvalidRows)))
	m.failedBatches.Add(float64(r.FailedBatches))
}

// TagsPrinted records a print run.
func (m *Metrics) TagsPrinted(tags, barcodeFailures int) {
	if m == nil {
		return
	}
	m.tagsPrinted.Add(float64(tags))
	m.barcodeErrors.Add(float64(barcodeFailures))
}
