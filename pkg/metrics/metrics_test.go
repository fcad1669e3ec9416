package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRun("peptide_ident", true)
	m.RecordRun("peptide_ident", true)
	m.RecordRun("consensus", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("peptide_ident", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("consensus", "error")))
}

func TestRecordGroupsAndProteins(t *testing.T) {
	m := New(nil)

	m.RecordGroups(3, 5)
	m.RecordGroups(1, 1)
	m.RecordProtein("primary")
	m.RecordUnmatched(4)
	m.RecordUnmatched(0)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.GroupsTotal.WithLabelValues("isd")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.GroupsTotal.WithLabelValues("msd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProteinsTotal.WithLabelValues("primary")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.UnmatchedPeptidesTotal))
}

func TestObservePhase(t *testing.T) {
	m := New(nil)
	m.ObservePhase("isd", 20*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.PhaseDurationSeconds, "protresolve_phase_duration_seconds"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRun("consensus", true)
		m.RecordGroups(1, 1)
		m.RecordProtein("secondary")
		m.RecordUnmatched(2)
		m.ObservePhase("msd", time.Second)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteToTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestWriteToTextfile(t *testing.T) {
	m := New(nil)
	m.RecordRun("consensus", true)

	path := filepath.Join(t.TempDir(), "protresolve.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `protresolve_runs_total{input_type="consensus",status="success"} 1`))
}
