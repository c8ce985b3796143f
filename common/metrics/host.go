package metrics

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// HostInfo describes the machine a server runs on
type HostInfo struct {
	OS               string `json:"os"`
	Arch             string `json:"arch"`
	Hostname         string `json:"hostname"`
	CPULogical       int    `json:"cpu_logical"`
	TotalMemoryMB    uint64 `json:"total_memory_mb"`
	GoVersion        string `json:"go_version"`
	ContainerRuntime string `json:"container_runtime,omitempty"`
}

var (
	hostInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "haystack_host_info",
			Help: "Host the server runs on; value is always 1",
		},
		[]string{"service", "hostname", "os", "arch", "go_version", "container_runtime"},
	)

	host     *HostInfo
	hostOnce sync.Once
)

// Host returns the host description, captured once per process
func Host() *HostInfo {
	hostOnce.Do(func() {
		host = captureHostInfo()
	})
	return host
}

// PublishHostInfo exports the host description as the haystack_host_info gauge
func PublishHostInfo(service string) *HostInfo {
	h := Host()
	hostInfo.WithLabelValues(service, h.Hostname, h.OS, h.Arch, h.GoVersion, h.ContainerRuntime).Set(1)
	return h
}

func captureHostInfo() *HostInfo {
	info := &HostInfo{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		CPULogical: runtime.NumCPU(),
		GoVersion:  runtime.Version(),
		Hostname:   "unknown",
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	info.ContainerRuntime = detectContainer()
	info.TotalMemoryMB = linuxMemoryMB()
	return info
}

// detectContainer returns the container runtime, or "" on bare metal
func detectContainer() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "docker"
	}
	if _, err := os.Stat("/var/run/secrets/kubernetes.io"); err == nil {
		return "kubernetes"
	}

	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return ""
	}
	content := string(data)
	switch {
	case strings.Contains(content, "kubepods"):
		return "kubernetes"
	case strings.Contains(content, "docker"):
		return "docker"
	case strings.Contains(content, "containerd"):
		return "containerd"
	}
	return ""
}

// linuxMemoryMB reads MemTotal; other platforms report 0
func linuxMemoryMB() uint64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		var kb uint64
		if _, err := fmt.Sscanf(fields[1], "%d", &kb); err == nil {
			return kb / 1024
		}
	}
	return 0
}
