package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrq",
			Name:      "searches_total",
			Help:      "Total number of executed searches",
		},
		[]string{"handler", "status"},
	)

	SolrQTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solrq",
			Name:      "solr_qtime_seconds",
			Help:      "Query time reported by Solr in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"handler"},
	)

	SolrRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solrq",
			Name:      "solr_request_duration_seconds",
			Help:      "Round trip of Solr requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"handler", "status"},
	)

	HitsUnresolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrq",
			Name:      "hits_unresolved_total",
			Help:      "Hits whose instance was missing from the data store",
		},
		[]string{"class"},
	)

	FacetInstancesUnresolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrq",
			Name:      "facet_instances_unresolved_total",
			Help:      "Reference facet rows whose instance was missing from the data store",
		},
		[]string{"facet"},
	)

	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrq",
			Name:      "documents_indexed_total",
			Help:      "Documents sent to Solr by bulk indexing",
		},
		[]string{"class", "status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SolrQTime)
	prometheus.MustRegister(SolrRequestDuration)
	prometheus.MustRegister(HitsUnresolvedTotal)
	prometheus.MustRegister(FacetInstancesUnresolvedTotal)
	prometheus.MustRegister(DocumentsIndexedTotal)
	searchMetricsRegistered = true
}
