package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe("reg_usb", 3, 5*time.Millisecond, nil)
	m.Observe("reg_usb", 2, time.Millisecond, nil)
	m.Observe("reg_hid", 0, time.Millisecond, errors.New("boom"))
	m.SkippedRecord("Security.evtx")

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Records.WithLabelValues("reg_usb")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("reg_hid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Failures.WithLabelValues("reg_usb")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped.WithLabelValues("Security.evtx")))
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.Observe("evtx_logons", 7, time.Second, nil)

	fs := afero.NewMemMapFs()
	require.NoError(t, m.WriteFile(fs, "/out/metrics.prom"))
	data, err := afero.ReadFile(fs, "/out/metrics.prom")
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "# TYPE artifact_records_total counter")
	assert.Contains(t, text, `artifact_records_total{artifact="evtx_logons"} 7`)
	assert.Contains(t, text, "artifact_duration_seconds_count")
}
