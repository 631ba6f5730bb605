// Package blockmetrics exports blockstore usage and operation counters as
// Prometheus metrics.
package blockmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshuapare/blockkit/blockstore"
)

// Source is implemented by *blockstore.Storage[T] for every T.
type Source interface {
	Stats() blockstore.Stats
	Usage() blockstore.Usage
}

const namespace = "blockstore"

type gauge struct {
	desc  *prometheus.Desc
	value func(blockstore.Usage) float64
}

type counter struct {
	desc  *prometheus.Desc
	value func(blockstore.Stats) float64
}

// Collector reads a Source on every scrape. It holds no state of its own, so
// scrapes reflect the storage exactly at collection time.
//
// The storage is not safe for concurrent use: the caller must make sure
// scrapes do not race with mutations, for example by registering the
// collector with a registry that is only gathered from the storage's
// goroutine.
type Collector struct {
	src      Source
	gauges   []gauge
	counters []counter
	coalesce *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

// NewCollector returns a collector for src. name is attached to every metric
// as the "storage" label.
func NewCollector(name string, src Source) *Collector {
	labels := prometheus.Labels{"storage": name}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, variable, labels)
	}

	return &Collector{
		src: src,
		gauges: []gauge{
			{desc("block_size", "Elements per block."),
				func(u blockstore.Usage) float64 { return float64(u.BlockSize) }},
			{desc("generation", "Current storage generation; incremented by every clear."),
				func(u blockstore.Usage) float64 { return float64(u.Generation) }},
			{desc("blocks", "Blocks in the backing store."),
				func(u blockstore.Usage) float64 { return float64(u.Blocks) }},
			{desc("allocated_blocks", "Blocks held by allocated runs."),
				func(u blockstore.Usage) float64 { return float64(u.AllocatedBlocks) }},
			{desc("free_blocks", "Blocks held by free runs."),
				func(u blockstore.Usage) float64 { return float64(u.FreeBlocks) }},
			{desc("active_runs", "Allocated runs."),
				func(u blockstore.Usage) float64 { return float64(u.ActiveRuns) }},
			{desc("borrowed_runs", "Allocated runs with a live view."),
				func(u blockstore.Usage) float64 { return float64(u.BorrowedRuns) }},
			{desc("free_runs", "Free runs in the free-run index."),
				func(u blockstore.Usage) float64 { return float64(u.FreeRuns) }},
			{desc("live_elements", "Initialised elements across all runs."),
				func(u blockstore.Usage) float64 { return float64(u.LiveElements) }},
			{desc("capacity_elements", "Element slots across all blocks."),
				func(u blockstore.Usage) float64 { return float64(u.Capacity) }},
		},
		counters: []counter{
			{desc("create_calls_total", "Create calls."),
				func(s blockstore.Stats) float64 { return float64(s.CreateCalls) }},
			{desc("get_calls_total", "Get calls."),
				func(s blockstore.Stats) float64 { return float64(s.GetCalls) }},
			{desc("remove_calls_total", "Remove calls."),
				func(s blockstore.Stats) float64 { return float64(s.RemoveCalls) }},
			{desc("rejected_total", "Get and Remove calls refused for a stale, foreign, freed or borrowed key."),
				func(s blockstore.Stats) float64 { return float64(s.Rejected) }},
			{desc("grows_total", "Extensions of the backing store."),
				func(s blockstore.Stats) float64 { return float64(s.Grows) }},
			{desc("grown_blocks_total", "Blocks added by extensions of the backing store."),
				func(s blockstore.Stats) float64 { return float64(s.GrownBlocks) }},
			{desc("splits_total", "Free runs split by Create."),
				func(s blockstore.Stats) float64 { return float64(s.Splits) }},
			{desc("clears_total", "Clear calls."),
				func(s blockstore.Stats) float64 { return float64(s.Clears) }},
			{desc("dropped_elements_total", "Elements destroyed by the storage."),
				func(s blockstore.Stats) float64 { return float64(s.Drops) }},
		},
		coalesce: desc("coalesces_total", "Merges of a freed run with a neighbouring free run.", "direction"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
	for _, m := range c.counters {
		ch <- m.desc
	}
	ch <- c.coalesce
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	u := c.src.Usage()
	st := c.src.Stats()

	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.value(u))
	}
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, m.value(st))
	}
	ch <- prometheus.MustNewConstMetric(c.coalesce, prometheus.CounterValue, float64(st.CoalesceForward), "forward")
	ch <- prometheus.MustNewConstMetric(c.coalesce, prometheus.CounterValue, float64(st.CoalesceBackward), "backward")
}
