package yt

import (
	"sync"

	"Nocturne/queue"

	"github.com/Strum355/log"
)

// PrefetchAudio downloads audio for a batch of songs with bounded
// concurrency, so a confirmed playlist import doesn't stall on the first
// head swap. Failures are logged per song; the playback loop retries on
// demand anyway.
func (r *Resolver) PrefetchAudio(songs []*queue.Song, maxConcurrency int) int {
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		fetched int
	)
	sem := make(chan struct{}, maxConcurrency)

	for _, song := range songs {
		wg.Add(1)
		go func(s *queue.Song) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if _, err := r.EnsureAudio(s); err != nil {
				log.WithError(err).WithFields(log.Fields{"song_id": s.ID}).Error("Prefetch failed")
				return
			}

			mu.Lock()
			fetched++
			mu.Unlock()
		}(song)
	}

	wg.Wait()
	return fetched
}
