package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("like.toggle", nil)
		m.OrphanedBlob()
		m.ViewOpened("feed")
		m.HTTPError("5001")
	})
}

func TestOperationCounters(t *testing.T) {
	m := New()
	m.ObserveOperation("post.create", nil)
	m.ObserveOperation("post.create", errors.New("x"))
	m.ObserveOperation("post.create", errors.New("y"))
	m.OrphanedBlob()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("post.create", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("post.create", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrphanedBlobs))
}

func TestLiveViewsGauge(t *testing.T) {
	m := New()
	m.ViewOpened("profile")
	m.ViewOpened("profile")
	m.ViewClosed("profile")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveViews.WithLabelValues("profile")))
}
