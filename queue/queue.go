package queue

import (
	"errors"
	"sync"

	"github.com/Strum355/log"
)

// LoopMode controls what happens to the head when a stream finishes
type LoopMode int

const (
	LoopNone   LoopMode = iota // Drop the head, play the next song
	LoopSingle                 // Keep the head, play it again
	LoopList                   // Rotate the head to the tail
)

// String returns the human readable name of the loop mode
func (m LoopMode) String() string {
	switch m {
	case LoopSingle:
		return "single"
	case LoopList:
		return "list"
	default:
		return "none"
	}
}

var (
	ErrIndexOutOfRange = errors.New("index outside the pending part of the queue")
	ErrSameIndex       = errors.New("indices are equal, nothing to move")
)

// Queue is an ordered sequence of songs. Index 0 is the playing head and is
// only ever removed by Advance; edit operations work on indices 1..len-1.
type Queue struct {
	songs []*Song
	mu    sync.Mutex
}

// New returns an empty queue
func New() *Queue {
	return &Queue{songs: []*Song{}}
}

// Enqueue appends a song to the tail. Duplicates are allowed.
func (q *Queue) Enqueue(song *Song) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.songs = append(q.songs, song)
}

// EnqueueAll appends songs in the given order. The onAdded side effect is
// best-effort: a failure is logged and never blocks the remaining appends.
func (q *Queue) EnqueueAll(songs []*Song, onAdded func(*Song) error) {
	for _, song := range songs {
		q.Enqueue(song)
		if onAdded == nil {
			continue
		}
		if err := onAdded(song); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"song_id": song.ID,
			}).Error("Enqueue side effect failed, continuing")
		}
	}
}

// DeleteAt removes the song at index and returns it for confirmation
// messaging. The head (index 0) cannot be deleted.
func (q *Queue) DeleteAt(index int) (*Song, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 1 || index > len(q.songs)-1 {
		return nil, ErrIndexOutOfRange
	}

	removed := q.songs[index]
	q.songs = append(q.songs[:index], q.songs[index+1:]...)
	return removed, nil
}

// Reorder removes the song at from and reinserts it at to. The insertion index
// is interpreted against the already-shortened sequence, so this is a
// splice-then-splice move, not a swap.
func (q *Queue) Reorder(from, to int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if from == to {
		return ErrSameIndex
	}
	if from < 1 || from > len(q.songs)-1 || to < 1 || to > len(q.songs)-1 {
		return ErrIndexOutOfRange
	}

	song := q.songs[from]
	q.songs = append(q.songs[:from], q.songs[from+1:]...)

	q.songs = append(q.songs, nil)
	copy(q.songs[to+1:], q.songs[to:])
	q.songs[to] = song
	return nil
}

// Clear truncates the queue to the head only. No-op when nothing is pending.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.songs) <= 1 {
		return
	}
	q.songs = q.songs[:1]
}

// Advance moves the queue past the finished head according to the loop mode.
// LoopList re-appends the head before dropping it, which leaves the queue
// rotated left by one.
func (q *Queue) Advance(mode LoopMode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.songs) == 0 || mode == LoopSingle {
		return
	}
	if mode == LoopList {
		q.songs = append(q.songs, q.songs[0])
	}
	q.songs = q.songs[1:]
}

// Head returns the currently playing song, or nil if the queue is empty
func (q *Queue) Head() *Song {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.songs) == 0 {
		return nil
	}
	return q.songs[0]
}

// Len returns the number of songs including the head
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.songs)
}

// Songs returns a copy of the queue contents, head first
func (q *Queue) Songs() []*Song {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Song, len(q.songs))
	copy(out, q.songs)
	return out
}
