// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votechain/models"
)

func TestNewStartsDisconnected(t *testing.T) {
	s := New()
	snap := s.Load()
	assert.Equal(t, models.StateDisconnected, snap.Session.State)
	assert.NotNil(t, snap.Elections)
	assert.Zero(t, snap.Generation)
}

func TestUpdateIsCopyOnWrite(t *testing.T) {
	s := New()
	before := s.Load()

	s.Update(func(snap *Snapshot) {
		snap.Elections[5] = &models.Election{ID: 5}
		snap.Contract.TotalElections = 3
	})

	after := s.Load()
	assert.Empty(t, before.Elections, "published snapshot must not change")
	assert.Zero(t, before.Contract.TotalElections)

	e, ok := after.Election(5)
	require.True(t, ok)
	assert.Equal(t, uint64(5), e.ID)
	assert.Equal(t, uint64(3), after.Contract.TotalElections)
}

func TestUpdateIfDropsStaleGeneration(t *testing.T) {
	s := New()
	s.Update(func(snap *Snapshot) { snap.Generation = 2 })

	applied := s.UpdateIf(1, func(snap *Snapshot) { snap.Contract.Paused = true })
	assert.False(t, applied)
	assert.False(t, s.Load().Contract.Paused)

	applied = s.UpdateIf(2, func(snap *Snapshot) { snap.Contract.Paused = true })
	assert.True(t, applied)
	assert.True(t, s.Load().Contract.Paused)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s := New()
	ch := make(chan *Snapshot, 1)
	sub := s.Subscribe(ch)
	defer sub.Unsubscribe()

	s.Update(func(snap *Snapshot) { snap.Contract.TotalElections = 7 })

	got := <-ch
	assert.Equal(t, uint64(7), got.Contract.TotalElections)
}

func TestSubscribersSeePublicationOrder(t *testing.T) {
	s := New()
	ch := make(chan *Snapshot, 200)
	sub := s.Subscribe(ch)
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				s.Update(func(snap *Snapshot) { snap.Contract.TotalElections++ })
			}
		}()
	}
	wg.Wait()

	require.Len(t, ch, 100)
	for want := uint64(1); want <= 100; want++ {
		got := <-ch
		assert.Equal(t, want, got.Contract.TotalElections)
	}
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			s.Update(func(snap *Snapshot) {
				snap.Contract.TotalElections = n
				snap.Summaries = make([]models.ElectionSummary, n)
			})
		}(uint64(i))
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := s.Load()
			assert.Equal(t, int(snap.Contract.TotalElections), len(snap.Summaries))
		}()
	}
	wg.Wait()
}
