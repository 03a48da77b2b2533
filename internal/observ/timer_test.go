package observ

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("read")
	time.Sleep(time.Millisecond)
	tm.End(idx, "2 files")
	tm.End(99, "ignored")

	rep := tm.Report()
	require.Len(t, rep.Phases, 1)
	assert.Equal(t, "read", rep.Phases[0].Name)
	assert.Equal(t, "2 files", rep.Phases[0].Note)
	assert.Greater(t, rep.Phases[0].DurationMS, 0.0)
	assert.GreaterOrEqual(t, rep.WallMS, rep.Phases[0].DurationMS)

	sum := tm.Summary()
	assert.Contains(t, sum, "read")
	assert.Contains(t, sum, "// 2 files")
	assert.Contains(t, sum, "wall")
}

func TestTimerEmpty(t *testing.T) {
	assert.Equal(t, Report{}, NewTimer().Report())
}

func TestTimerConcurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin("analyze"), "")
		}()
	}
	wg.Wait()
	assert.Len(t, tm.Report().Phases, 16)
}
