// Package metrics merges OS-level process metrics with adapter-reported
// metrics into point-in-time snapshots. Nothing is cached across requests.
package metrics

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/psantana5/container-control/pkg/adapter"
	"github.com/psantana5/container-control/pkg/state"
)

// TimestampLayout is UTC ISO-8601 with microsecond precision
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// reservedKeys always win over adapter-reported keys in the merged mapping.
// The silent precedence is deliberate: an adapter must never be able to
// spoof the core's own view of the workload.
var reservedKeys = map[string]bool{
	"timestamp": true,
	"state":     true,
	"process":   true,
	"system":    true,
}

// ProcessMetrics covers the process tree rooted at the workload handle
type ProcessMetrics struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
	NumProcs    int     `json:"num_procs"`
}

// SystemMetrics covers the whole container, matching what the control core
// has always reported alongside the workload view.
type SystemMetrics struct {
	CPUPercent           float64 `json:"cpu_percent"`
	MemoryPercent        float64 `json:"memory_percent"`
	MemoryUsedBytes      uint64  `json:"memory_used_bytes"`
	MemoryAvailableBytes uint64  `json:"memory_available_bytes"`
	NetBytesSent         uint64  `json:"net_bytes_sent"`
	NetBytesRecv         uint64  `json:"net_bytes_recv"`
	NetPacketsSent       uint64  `json:"net_packets_sent"`
	NetPacketsRecv       uint64  `json:"net_packets_recv"`
}

// Snapshot is a point-in-time view of the workload and its container
type Snapshot struct {
	Timestamp string          `json:"timestamp"`
	State     state.State     `json:"state"`
	Process   *ProcessMetrics `json:"process,omitempty"`
	System    SystemMetrics   `json:"system"`
	// Adapter metrics are merged at the top level by Map, not nested
	Adapter map[string]interface{} `json:"-"`
}

// Map renders the snapshot as a single mapping with adapter metrics merged
// under their own keys. Reserved keys win on collision.
func (s Snapshot) Map() map[string]interface{} {
	out := map[string]interface{}{
		"timestamp": s.Timestamp,
		"state":     s.State,
		"system":    s.System,
	}
	if s.Process != nil {
		out["process"] = s.Process
	}
	for k, v := range s.Adapter {
		if reservedKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// Aggregator produces snapshots. The samplers are swappable so tests never
// touch the real process table.
type Aggregator struct {
	now           func() time.Time
	sampleSystem  func() SystemMetrics
	sampleProcess func(pid int) *ProcessMetrics
}

// AggOption customizes an Aggregator, used by tests to fake the samplers
type AggOption func(*Aggregator)

// WithClock overrides the snapshot clock
func WithClock(now func() time.Time) AggOption {
	return func(a *Aggregator) { a.now = now }
}

// WithSystemSampler overrides container-wide sampling
func WithSystemSampler(fn func() SystemMetrics) AggOption {
	return func(a *Aggregator) { a.sampleSystem = fn }
}

// WithProcessSampler overrides process-tree sampling
func WithProcessSampler(fn func(pid int) *ProcessMetrics) AggOption {
	return func(a *Aggregator) { a.sampleProcess = fn }
}

// NewAggregator creates an aggregator backed by gopsutil
func NewAggregator(opts ...AggOption) *Aggregator {
	a := &Aggregator{
		now:           time.Now,
		sampleSystem:  sampleSystem,
		sampleProcess: sampleProcessTree,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MetricsSource is the slice of the adapter contract the aggregator needs
type MetricsSource interface {
	Metrics() map[string]interface{}
}

// Take builds a snapshot for the given state and handle. Process metrics are
// only sampled while running and only when the handle is rooted at a PID;
// the controller never looks inside the handle, the aggregator only asks it.
func (a *Aggregator) Take(st state.State, h adapter.Handle, src MetricsSource) Snapshot {
	snap := Snapshot{
		Timestamp: a.now().UTC().Format(TimestampLayout),
		State:     st,
		System:    a.sampleSystem(),
	}

	if st == state.StateRunning && h != nil {
		if ph, ok := h.(adapter.ProcessHandle); ok {
			snap.Process = a.sampleProcess(ph.Pid())
		}
	}

	if src != nil {
		snap.Adapter = src.Metrics()
	}
	if snap.Adapter == nil {
		snap.Adapter = map[string]interface{}{}
	}
	return snap
}

// sampleSystem collects container-wide metrics, best effort
func sampleSystem() SystemMetrics {
	var m SystemMetrics

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		m.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		m.MemoryPercent = vm.UsedPercent
		m.MemoryUsedBytes = vm.Used
		m.MemoryAvailableBytes = vm.Available
	}
	if counters, err := gopsnet.IOCounters(false); err == nil && len(counters) > 0 {
		m.NetBytesSent = counters[0].BytesSent
		m.NetBytesRecv = counters[0].BytesRecv
		m.NetPacketsSent = counters[0].PacketsSent
		m.NetPacketsRecv = counters[0].PacketsRecv
	}
	return m
}

// sampleProcessTree sums CPU and RSS over the process tree rooted at pid.
// Returns nil when the root process is already gone.
func sampleProcessTree(pid int) *ProcessMetrics {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	procs := []*process.Process{root}
	procs = append(procs, descendants(root)...)

	var out ProcessMetrics
	for _, p := range procs {
		if pct, err := p.CPUPercent(); err == nil {
			out.CPUPercent += pct
		}
		if info, err := p.MemoryInfo(); err == nil && info != nil {
			out.MemoryBytes += info.RSS
		}
		out.NumProcs++
	}
	return &out
}

func descendants(p *process.Process) []*process.Process {
	children, err := p.Children()
	if err != nil {
		return nil
	}
	all := make([]*process.Process, 0, len(children))
	for _, child := range children {
		all = append(all, child)
		all = append(all, descendants(child)...)
	}
	return all
}
