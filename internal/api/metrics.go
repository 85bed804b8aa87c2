package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrcl/maprot/internal/workspace"
)

// Metrics holds the collectors exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	extracted   *prometheus.CounterVec
	rewritten   *prometheus.CounterVec
	generations prometheus.Counter
	maps        *prometheus.GaugeVec
	rotationLen prometheus.Gauge
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := &Metrics{
		registry: reg,
		extracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maprot_extract_total",
			Help: "Containers processed by extraction, by result kind.",
		}, []string{"kind"}),
		rewritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maprot_rewrite_total",
			Help: "Entity artifacts rewritten during generation, by result.",
		}, []string{"result"}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maprot_generate_runs_total",
			Help: "Completed rotation generation runs.",
		}),
		maps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "maprot_maps",
			Help: "Containers in the maps directory by artifact status.",
		}, []string{"status"}),
		rotationLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maprot_rotation_maps",
			Help: "Entries in the served rotation.",
		}),
	}
	reg.MustRegister(m.extracted, m.rewritten, m.generations, m.maps, m.rotationLen)
	return m
}

func (m *Metrics) observeInventory(entries []workspace.Entry) {
	counts := map[string]int{workspace.StatusGenerated: 0, workspace.StatusMissing: 0}
	for _, e := range entries {
		counts[e.Status]++
	}
	for status, n := range counts {
		m.maps.WithLabelValues(status).Set(float64(n))
	}
}

// Handler refreshes the gauges through refresh before every scrape.
func (m *Metrics) Handler(refresh func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if refresh != nil {
			refresh()
		}
		h.ServeHTTP(w, r)
	})
}
