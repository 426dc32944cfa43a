// Package telemetry provides the pluggable system-metrics source sampled by
// the hub's monitoring stream.
package telemetry

// Source produces point-in-time system gauges. Implementations must be safe
// for concurrent use: every active monitoring subscription samples the same
// source.
type Source interface {
	// CPUPercent returns total CPU utilization in [0, 100].
	CPUPercent() float64
	// MemoryPercent returns used physical memory in [0, 100].
	MemoryPercent() float64
	// NetworkInMBps returns the inbound network rate in MB/s.
	NetworkInMBps() float64
	// NetworkOutMBps returns the outbound network rate in MB/s.
	NetworkOutMBps() float64
}

// StaticSampler returns fixed readings. Useful in tests and on platforms the
// system sampler does not support.
type StaticSampler struct {
	CPU    float64
	Memory float64
	NetIn  float64
	NetOut float64
}

func (s StaticSampler) CPUPercent() float64     { return s.CPU }
func (s StaticSampler) MemoryPercent() float64  { return s.Memory }
func (s StaticSampler) NetworkInMBps() float64  { return s.NetIn }
func (s StaticSampler) NetworkOutMBps() float64 { return s.NetOut }
