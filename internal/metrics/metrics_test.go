package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRemote("list_projects", 10*time.Millisecond, nil)
	m.ObserveRemote("list_projects", time.Millisecond, fmt.Errorf("%w: open", remote.ErrUnavailable))
	m.ObserveStore("projects", "fetch_projects", errors.New("boom"))
	m.BreakerChanged("remote", gobreaker.StateClosed, gobreaker.StateOpen)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteCalls.WithLabelValues("list_projects", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteCalls.WithLabelValues("list_projects", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOps.WithLabelValues("projects", "fetch_projects", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState))
}
