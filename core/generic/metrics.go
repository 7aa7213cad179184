package generic

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/objdb"
)

var (
	promOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "objdb_store_operations_total",
		Help: "total number of mutations applied to a store",
	}, []string{"store", "op"})

	promObjects = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "objdb_store_objects",
		Help: "number of live objects in a store",
	}, []string{"store"})
)

func init() {
	objdb.PromCollectors = append(objdb.PromCollectors, promOperations, promObjects)
}

// storeMetrics holds the collectors of one store.
type storeMetrics struct {
	inserts prometheus.Counter
	updates prometheus.Counter
	removes prometheus.Counter
	objects prometheus.Gauge
}

func newStoreMetrics(name string) storeMetrics {
	return storeMetrics{
		inserts: promOperations.WithLabelValues(name, "insert"),
		updates: promOperations.WithLabelValues(name, "modify"),
		removes: promOperations.WithLabelValues(name, "remove"),
		objects: promObjects.WithLabelValues(name),
	}
}

func (m storeMetrics) inserted() {
	m.inserts.Inc()
}

func (m storeMetrics) modified() {
	m.updates.Inc()
}

func (m storeMetrics) removed() {
	m.removes.Inc()
}

func (m storeMetrics) size(n int) {
	m.objects.Set(float64(n))
}
