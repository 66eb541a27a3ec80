package neobase

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the size and load counters of a Base as prometheus
// metrics. The Base is immutable, so the values never change after
// registration; they are still read on every scrape.
type Collector struct {
	base *Base

	entries  *prometheus.Desc
	keys     *prometheus.Desc
	skipped  *prometheus.Desc
	duration *prometheus.Desc
}

// NewCollector returns a Collector for b. Register it with a prometheus
// registry to expose the metrics:
//
//	prometheus.MustRegister(neobase.NewCollector(b))
func NewCollector(b *Base) *Collector {
	source := prometheus.Labels{"source": b.stats.Source}
	return &Collector{
		base: b,
		entries: prometheus.NewDesc("neobase_entries",
			"Number of indexed entries, duplicate aliases included.", nil, source),
		keys: prometheus.NewDesc("neobase_keys",
			"Number of distinct primary keys.", nil, source),
		skipped: prometheus.NewDesc("neobase_skipped_records",
			"Rows discarded while loading, by reason.", []string{"reason"}, source),
		duration: prometheus.NewDesc("neobase_load_duration_seconds",
			"Time spent loading the dataset.", nil, source),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.keys
	ch <- c.skipped
	ch <- c.duration
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.base.stats
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(c.base.Len()))
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.GaugeValue, float64(st.SkippedValidity), "validity")
	ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.GaugeValue, float64(st.SkippedDuplicate), "duplicate")
	ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.GaugeValue, float64(st.SkippedEmptyKey), "empty_key")
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.GaugeValue, st.Duration.Seconds())
}
