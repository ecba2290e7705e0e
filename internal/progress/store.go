package progress

import (
	"sync"
	"sync/atomic"
)

// Store maps album ids to progress records. Each album has its own
// atomically replaced entry, so readers never block on writers of other
// albums and never observe a partially written record.
type Store struct {
	entries sync.Map // int -> *atomic.Pointer[Record]
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) entry(albumID int) *atomic.Pointer[Record] {
	if e, ok := s.entries.Load(albumID); ok {
		return e.(*atomic.Pointer[Record])
	}
	e, _ := s.entries.LoadOrStore(albumID, new(atomic.Pointer[Record]))
	return e.(*atomic.Pointer[Record])
}

// Get returns the current record, or an idle snapshot for unknown albums.
func (s *Store) Get(albumID int) Record {
	e, ok := s.entries.Load(albumID)
	if !ok {
		return Idle()
	}
	if rec := e.(*atomic.Pointer[Record]).Load(); rec != nil {
		return *rec
	}
	return Idle()
}

// Set replaces the whole record. Only the unit of work owning the album calls it.
func (s *Store) Set(albumID int, rec Record) {
	s.entry(albumID).Store(&rec)
}

func (s *Store) IsActive(albumID int) bool {
	return s.Get(albumID).State.Active()
}

// Begin atomically checks that the album is not active and marks it as
// preparing. It returns false, leaving the record untouched, when another
// unit of work already owns the album.
func (s *Store) Begin(albumID int) bool {
	e := s.entry(albumID)
	next := Preparing()
	for {
		cur := e.Load()
		if cur != nil && cur.State.Active() {
			return false
		}
		if e.CompareAndSwap(cur, &next) {
			return true
		}
	}
}

// Snapshot copies every known record.
func (s *Store) Snapshot() map[int]Record {
	out := make(map[int]Record)
	s.entries.Range(func(key, value any) bool {
		if rec := value.(*atomic.Pointer[Record]).Load(); rec != nil {
			out[key.(int)] = *rec
		}
		return true
	})
	return out
}
