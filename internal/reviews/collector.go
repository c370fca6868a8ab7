package reviews

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "reviewhub"

// Collector exports registry sizes as gauges. Each scrape takes one Stats
// snapshot, so the three values are mutually consistent.
type Collector struct {
	store Store

	products *prometheus.Desc
	reviewed *prometheus.Desc
	reviews  *prometheus.Desc
}

func NewCollector(s Store) *Collector {
	return &Collector{
		store: s,
		products: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "products"),
			"Products known to the registry",
			nil, nil,
		),
		reviewed: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "products_with_reviews"),
			"Products holding at least one review",
			nil, nil,
		),
		reviews: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "reviews"),
			"Reviews held across all products",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.products
	ch <- c.reviewed
	ch <- c.reviews
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.store.Stats()
	ch <- prometheus.MustNewConstMetric(c.products, prometheus.GaugeValue, float64(st.Products))
	ch <- prometheus.MustNewConstMetric(c.reviewed, prometheus.GaugeValue, float64(st.ProductsWithReviews))
	ch <- prometheus.MustNewConstMetric(c.reviews, prometheus.GaugeValue, float64(st.Reviews))
}
