package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/admin/users", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/admin/users", "GET", 200, 5*time.Millisecond)
	m.RecordError("/admin/users/:id/status", "POST", "TRANSITION_REJECTED")
	m.RecordTransition("active", "suspended", "success")
	m.RecordAuditFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/admin/users", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/admin/users/:id/status", "POST", "TRANSITION_REJECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("active", "suspended", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordTransition("a", "b", "c")
		m.RecordAuditFailure()
	})
}
