package progress

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnknownAlbumIsIdle(t *testing.T) {
	s := NewStore()
	rec := s.Get(999)
	assert.Equal(t, StateIdle, rec.State)
	assert.Equal(t, 0, rec.Percent)
	assert.False(t, s.IsActive(999))
}

func TestSetReplacesWholeRecord(t *testing.T) {
	s := NewStore()
	s.Set(1, Downloading(2, 4))
	assert.Equal(t, Record{State: StateDownloading, Current: 2, Total: 4, Percent: 50}, s.Get(1))

	s.Set(1, s.Get(1).Completed())
	assert.Equal(t, Record{State: StateCompleted, Current: 2, Total: 4, Percent: 100}, s.Get(1))
}

func TestBeginRejectsActiveAlbum(t *testing.T) {
	s := NewStore()
	require.True(t, s.Begin(42))
	assert.Equal(t, Preparing(), s.Get(42))
	assert.True(t, s.IsActive(42))

	assert.False(t, s.Begin(42), "preparing album must not be admitted twice")

	s.Set(42, Downloading(1, 3))
	assert.False(t, s.Begin(42), "downloading album must not be admitted twice")
	assert.Equal(t, Downloading(1, 3), s.Get(42), "rejected admission must not reset the record")
}

func TestBeginRestartsTerminalAlbum(t *testing.T) {
	s := NewStore()
	s.Set(7, Downloading(3, 3).Completed())
	require.True(t, s.Begin(7))
	assert.Equal(t, Record{State: StatePreparing}, s.Get(7))

	s.Set(8, Downloading(1, 5).Failed())
	require.True(t, s.Begin(8))
	assert.Equal(t, Record{State: StatePreparing}, s.Get(8))
}

func TestBeginIsExclusiveUnderRace(t *testing.T) {
	s := NewStore()
	const contenders = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.Begin(42) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestPercentFloors(t *testing.T) {
	for total := 1; total <= 13; total++ {
		for current := 0; current <= total; current++ {
			want := int(math.Floor(float64(current*100) / float64(total)))
			assert.Equal(t, want, Percent(current, total), "current=%d total=%d", current, total)
		}
	}
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 66, Percent(2, 3))
}

func TestSnapshot(t *testing.T) {
	s := NewStore()
	s.Set(1, Preparing())
	s.Set(2, Downloading(1, 2))
	snap := s.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, StateDownloading, snap[2].State)
}
