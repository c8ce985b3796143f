package metrics

import (
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHost_CapturedOnce(t *testing.T) {
	h := Host()

	assert.Same(t, h, Host())
	assert.Equal(t, runtime.GOOS, h.OS)
	assert.Equal(t, runtime.NumCPU(), h.CPULogical)
	assert.NotEmpty(t, h.Hostname)
}

func TestPublishHostInfo(t *testing.T) {
	h := PublishHostInfo("cacheserver")

	g := hostInfo.WithLabelValues("cacheserver", h.Hostname, h.OS, h.Arch, h.GoVersion, h.ContainerRuntime)
	assert.Equal(t, float64(1), testutil.ToFloat64(g))
}
