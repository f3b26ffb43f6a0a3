package metrics

import (
	"bytes"
	"fmt"
	"io"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/psantana5/container-control/pkg/state"
)

// ExpositionContentType is the pull-scraper text format content type
const ExpositionContentType = "text/plain; version=0.0.4"

// WriteExposition renders a snapshot in the flat text exposition format:
// container gauges first, then workload process gauges, the workload state
// enumeration, any adapter-contributed lines, and finally everything the
// process registered with the Prometheus client library.
func WriteExposition(w io.Writer, snap Snapshot, adapterLines []string, gatherer promclient.Gatherer) {
	fmt.Fprintf(w, "# HELP container_cpu_percent Container CPU usage percent\n")
	fmt.Fprintf(w, "# TYPE container_cpu_percent gauge\n")
	fmt.Fprintf(w, "container_cpu_percent %.2f\n", snap.System.CPUPercent)

	fmt.Fprintf(w, "\n# HELP container_memory_percent Container memory usage percent\n")
	fmt.Fprintf(w, "# TYPE container_memory_percent gauge\n")
	fmt.Fprintf(w, "container_memory_percent %.2f\n", snap.System.MemoryPercent)

	fmt.Fprintf(w, "\n# HELP container_memory_used_bytes Container memory used in bytes\n")
	fmt.Fprintf(w, "# TYPE container_memory_used_bytes gauge\n")
	fmt.Fprintf(w, "container_memory_used_bytes %d\n", snap.System.MemoryUsedBytes)

	fmt.Fprintf(w, "\n# HELP container_network_bytes_sent_total Bytes sent on all interfaces\n")
	fmt.Fprintf(w, "# TYPE container_network_bytes_sent_total counter\n")
	fmt.Fprintf(w, "container_network_bytes_sent_total %d\n", snap.System.NetBytesSent)

	fmt.Fprintf(w, "\n# HELP container_network_bytes_recv_total Bytes received on all interfaces\n")
	fmt.Fprintf(w, "# TYPE container_network_bytes_recv_total counter\n")
	fmt.Fprintf(w, "container_network_bytes_recv_total %d\n", snap.System.NetBytesRecv)

	if snap.Process != nil {
		fmt.Fprintf(w, "\n# HELP ccc_workload_cpu_percent Workload process tree CPU percent\n")
		fmt.Fprintf(w, "# TYPE ccc_workload_cpu_percent gauge\n")
		fmt.Fprintf(w, "ccc_workload_cpu_percent %.2f\n", snap.Process.CPUPercent)

		fmt.Fprintf(w, "\n# HELP ccc_workload_memory_bytes Workload process tree RSS in bytes\n")
		fmt.Fprintf(w, "# TYPE ccc_workload_memory_bytes gauge\n")
		fmt.Fprintf(w, "ccc_workload_memory_bytes %d\n", snap.Process.MemoryBytes)

		fmt.Fprintf(w, "\n# HELP ccc_workload_processes Workload process tree size\n")
		fmt.Fprintf(w, "# TYPE ccc_workload_processes gauge\n")
		fmt.Fprintf(w, "ccc_workload_processes %d\n", snap.Process.NumProcs)
	}

	fmt.Fprintf(w, "\n# HELP ccc_workload_state Workload lifecycle state (1 for current)\n")
	fmt.Fprintf(w, "# TYPE ccc_workload_state gauge\n")
	for _, st := range state.All() {
		value := 0
		if st == snap.State {
			value = 1
		}
		fmt.Fprintf(w, "ccc_workload_state{state=%q} %d\n", string(st), value)
	}

	for _, line := range adapterLines {
		fmt.Fprintln(w, line)
	}

	if gatherer == nil {
		return
	}

	// Append everything registered with the client library, in the same
	// response, so a single scrape target covers the whole process.
	families, err := gatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering registered metrics: %v\n", err)
		return
	}

	fmt.Fprintf(w, "\n")
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}
