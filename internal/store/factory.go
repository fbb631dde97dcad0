package store

import "pulseboard.app/signals/core/db"

// Stores hands out every store bound to one querier. Bind it to the
// pool for standalone reads or to a transaction for the atomic sync
// write path.
type Stores struct {
	querier db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{querier: q}
}

func (s *Stores) Signals() SignalStore {
	return NewSignalStore(s.querier)
}

func (s *Stores) Connections() ConnectionStore {
	return NewConnectionStore(s.querier)
}
