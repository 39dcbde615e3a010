// Package metrics counts patch applications and misapplications with
// Prometheus collectors.
package metrics

import (
	"fmt"

	"github.com/dyluth/drey/pkg/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "drey"
	subsystem = "patch"

	// OpRemove labels removal counts.
	OpRemove = "remove"
	// OpAdd labels addition counts. Additions always apply.
	OpAdd = "add"
	// OpUpdate labels update counts.
	OpUpdate = "update"
)

// RequestCounts is the number of changes a patch asked for.
type RequestCounts struct {
	Removed int
	Added   int // Instances, children included
	Updated int
}

// CountRequests counts the changes requested by patch.
func CountRequests(patch snapshot.PatchSet) RequestCounts {
	counts := RequestCounts{
		Removed: len(patch.Removed),
		Updated: len(patch.Updated),
	}
	for _, add := range patch.Added {
		counts.Added += countSnapshots(add.Instance)
	}
	return counts
}

func countSnapshots(s snapshot.InstanceSnapshot) int {
	n := 1
	for _, child := range s.Children {
		n += countSnapshots(child)
	}
	return n
}

// Recorder holds the patch collectors registered on one registry.
type Recorder struct {
	applications     prometheus.Counter
	changes          *prometheus.CounterVec
	misapplications  *prometheus.CounterVec
	lastAppliedAtSec prometheus.Gauge
}

// NewRecorder registers the patch collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		applications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "applications_total",
			Help:      "Total number of patch sets applied",
		}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "changes_total",
			Help:      "Total number of changes that took effect, by operation",
		}, []string{"op"}),
		misapplications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "misapplications_total",
			Help:      "Total number of requested changes skipped because their target was gone, by operation",
		}, []string{"op"}),
		lastAppliedAtSec: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_applied_timestamp_seconds",
			Help:      "Unix time of the last patch application",
		}),
	}
}

// Observe records one application of a patch that requested the changes in
// requested and produced applied.
func (r *Recorder) Observe(requested RequestCounts, applied snapshot.AppliedPatchSet) {
	r.applications.Inc()
	r.lastAppliedAtSec.SetToCurrentTime()

	r.changes.WithLabelValues(OpRemove).Add(float64(len(applied.Removed)))
	r.changes.WithLabelValues(OpAdd).Add(float64(len(applied.Added)))
	r.changes.WithLabelValues(OpUpdate).Add(float64(len(applied.Updated)))

	r.misapplications.WithLabelValues(OpRemove).Add(skipped(requested.Removed, len(applied.Removed)))
	r.misapplications.WithLabelValues(OpUpdate).Add(skipped(requested.Updated, len(applied.Updated)))
}

func skipped(requested, applied int) float64 {
	if requested <= applied {
		return 0
	}
	return float64(requested - applied)
}

// WriteTextfile writes every metric gathered by g to path in the Prometheus
// text format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
