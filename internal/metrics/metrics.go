package metrics

import (
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for request observations.
const (
	OutcomeOK        = "ok"
	OutcomeNetwork   = "network_error"
	OutcomeOversized = "payload_too_large"
	OutcomeService   = "service_error"
)

var (
	// Registry holds the client metrics, separate from the default registerer.
	Registry = prometheus.NewRegistry()

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wkctl_request_duration_seconds",
		Help:    "Duration of requests issued to the WeKnora API",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120, 480},
	}, []string{"method", "outcome"})

	requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wkctl_requests_total",
		Help: "Requests issued to the WeKnora API grouped by method, outcome and status",
	}, []string{"method", "outcome", "status"})

	uploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wkctl_upload_bytes_total",
		Help: "Bytes written in multipart upload bodies",
	})
)

func init() {
	Registry.MustRegister(requestDuration, requestTotal, uploadBytes)
}

// ObserveRequest records the duration and outcome of a request. status is 0
// when no response was received.
func ObserveRequest(method, outcome string, status int, duration time.Duration) {
	if method == "" {
		method = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	requestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, outcome, code).Inc()
}

// AddUploadBytes records bytes sent in upload bodies.
func AddUploadBytes(n int64) {
	if n > 0 {
		uploadBytes.Add(float64(n))
	}
}

// Sample is a flattened counter value used for display.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers counters and histogram counts from Registry, sorted by name.
func Snapshot() ([]Sample, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, err
	}
	var samples []Sample
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				samples = append(samples, Sample{Name: fam.GetName(), Labels: labels, Value: m.GetCounter().GetValue()})
			case m.GetHistogram() != nil:
				samples = append(samples, Sample{Name: fam.GetName() + "_count", Labels: labels, Value: float64(m.GetHistogram().GetSampleCount())})
				samples = append(samples, Sample{Name: fam.GetName() + "_sum", Labels: labels, Value: m.GetHistogram().GetSampleSum()})
			}
		}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}
