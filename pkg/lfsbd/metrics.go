package lfsbd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	blockDeviceOperationsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "littlefs",
			Subsystem: "blockdevice",
			Name:      "operations_started_total",
			Help:      "Total number of operations started on block devices.",
		},
		[]string{"name", "operation"})
	blockDeviceOperationsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "littlefs",
			Subsystem: "blockdevice",
			Name:      "operations_failed_total",
			Help:      "Total number of operations on block devices that returned an error, by error kind.",
		},
		[]string{"name", "operation", "kind"})
	blockDeviceOperationsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "littlefs",
			Subsystem: "blockdevice",
			Name:      "operations_duration_seconds",
			Help:      "Amount of time spent per operation on block devices, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 7),
		},
		[]string{"name", "operation"})
)

func init() {
	prometheus.MustRegister(blockDeviceOperationsStartedTotal)
	prometheus.MustRegister(blockDeviceOperationsFailedTotal)
	prometheus.MustRegister(blockDeviceOperationsDurationSeconds)
}

type operationMetrics struct {
	name            string
	operation       string
	startedTotal    prometheus.Counter
	durationSeconds prometheus.Observer
}

func newOperationMetrics(name, operation string) operationMetrics {
	return operationMetrics{
		name:            name,
		operation:       operation,
		startedTotal:    blockDeviceOperationsStartedTotal.WithLabelValues(name, operation),
		durationSeconds: blockDeviceOperationsDurationSeconds.WithLabelValues(name, operation),
	}
}

func (m *operationMetrics) observe(timeStart time.Time, err error) error {
	m.durationSeconds.Observe(time.Since(timeStart).Seconds())
	if err != nil {
		blockDeviceOperationsFailedTotal.WithLabelValues(m.name, m.operation, KindOf(err).String()).Inc()
	}
	return err
}

type metricsBlockDevice struct {
	base  BlockDevice
	read  operationMetrics
	prog  operationMetrics
	erase operationMetrics
	sync  operationMetrics
}

// NewMetricsBlockDevice creates a decorator for BlockDevice that adds
// basic instrumentation in the form of Prometheus metrics.
func NewMetricsBlockDevice(base BlockDevice, name string) BlockDevice {
	return &metricsBlockDevice{
		base:  base,
		read:  newOperationMetrics(name, "Read"),
		prog:  newOperationMetrics(name, "Program"),
		erase: newOperationMetrics(name, "Erase"),
		sync:  newOperationMetrics(name, "Sync"),
	}
}

func (bd *metricsBlockDevice) Geometry() Geometry {
	return bd.base.Geometry()
}

func (bd *metricsBlockDevice) ReadBlock(block, off uint32, buf []byte) error {
	bd.read.startedTotal.Inc()
	timeStart := time.Now()
	return bd.read.observe(timeStart, bd.base.ReadBlock(block, off, buf))
}

func (bd *metricsBlockDevice) ProgramBlock(block, off uint32, buf []byte) error {
	bd.prog.startedTotal.Inc()
	timeStart := time.Now()
	return bd.prog.observe(timeStart, bd.base.ProgramBlock(block, off, buf))
}

func (bd *metricsBlockDevice) EraseBlock(block uint32) error {
	bd.erase.startedTotal.Inc()
	timeStart := time.Now()
	return bd.erase.observe(timeStart, bd.base.EraseBlock(block))
}

func (bd *metricsBlockDevice) Sync() error {
	bd.sync.startedTotal.Inc()
	timeStart := time.Now()
	return bd.sync.observe(timeStart, bd.base.Sync())
}

// Destroy forwards to the decorated device, if it can be destroyed.
func (bd *metricsBlockDevice) Destroy() {
	if d, ok := bd.base.(interface{ Destroy() }); ok {
		d.Destroy()
	}
}
