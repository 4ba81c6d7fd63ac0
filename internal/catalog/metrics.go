package catalog

import "github.com/prometheus/client_golang/prometheus"

// RegisterMetrics exposes the loaded catalog's shape as gauges.
func RegisterMetrics(reg prometheus.Registerer, c *Catalog) {
	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "apihub",
		Subsystem: "catalog",
		Name:      "info",
		Help:      "Loaded catalog revision and source, always 1",
	}, []string{"revision", "source"})
	info.WithLabelValues(c.Revision(), c.Source()).Set(1)

	reg.MustRegister(
		info,
		gaugeFunc("apis", "Records in the catalog", func() float64 { return float64(c.Count()) }),
		gaugeFunc("categories", "Distinct categories", func() float64 { return float64(len(c.categories)) }),
		gaugeFunc("auth_types", "Distinct auth types", func() float64 { return float64(len(c.authTypes)) }),
		gaugeFunc("integrity_issues", "Data-integrity issues found at load", func() float64 { return float64(len(c.issues)) }),
	)
}

func gaugeFunc(name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "apihub",
		Subsystem: "catalog",
		Name:      name,
		Help:      help,
	}, fn)
}
