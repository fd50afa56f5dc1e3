package monitoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	t.Run("create disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)
		assert.NotNil(t, collector)
		assert.False(t, collector.IsEnabled())
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record operation with disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)

		callCount := 0
		err := collector.RecordOperation("concat", "arrow", func() (int64, error) {
			callCount++
			return 3, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record operation with enabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		err := collector.RecordOperation("collect", "sqlite", func() (int64, error) {
			return 42, nil
		})
		require.NoError(t, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.Equal(t, "collect", metrics[0].Operation)
		assert.Equal(t, "sqlite", metrics[0].Backend)
		assert.Equal(t, int64(42), metrics[0].RowsProcessed)
		assert.False(t, metrics[0].Failed)
	})

	t.Run("failures are recorded and returned", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		boom := errors.New("boom")

		err := collector.RecordOperation("group_by", "arrow", func() (int64, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)

		summary := collector.GetSummary()
		assert.Equal(t, 1, summary.TotalOperations)
		assert.Equal(t, 1, summary.Failures)
	})

	t.Run("nil collector records nothing", func(t *testing.T) {
		var collector *MetricsCollector
		called := false
		err := collector.RecordOperation("concat", "arrow", func() (int64, error) {
			called = true
			return 1, nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Nil(t, collector.GetMetrics())
		assert.Equal(t, MetricsSummary{}, collector.GetSummary())
	})

	t.Run("toggle and clear", func(t *testing.T) {
		collector := NewMetricsCollector(false)
		collector.SetEnabled(true)
		_ = collector.RecordOperation("select", "arrow", func() (int64, error) { return 1, nil })
		assert.Len(t, collector.GetMetrics(), 1)

		collector.Clear()
		assert.Empty(t, collector.GetMetrics())
	})
}

func TestMetricsSummary(t *testing.T) {
	collector := NewMetricsCollector(true)
	for _, op := range []string{"concat", "concat", "collect"} {
		_ = collector.RecordOperation(op, "arrow", func() (int64, error) { return 10, nil })
	}
	_ = collector.RecordOperation("collect", "sqlite", func() (int64, error) { return 5, nil })

	summary := collector.GetSummary()
	assert.Equal(t, 4, summary.TotalOperations)
	assert.Equal(t, int64(35), summary.TotalRows)
	assert.Equal(t, map[string]int{"concat": 2, "collect": 2}, summary.OperationCounts)
	assert.Len(t, summary.BackendDuration, 2)
	assert.Contains(t, summary.BackendDuration, "sqlite")
}

func TestConcurrentRecording(t *testing.T) {
	collector := NewMetricsCollector(true)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = collector.RecordOperation("select", "arrow", func() (int64, error) { return 1, nil })
		}()
	}
	wg.Wait()
	assert.Len(t, collector.GetMetrics(), 20)
}
