package infra

import (
	"sync/atomic"

	"opd-booking/booking/domain"
)

// AtomicSequence gera ids crescentes a partir de 1, sem reuso.
// Seguro para uso concorrente e independente dos locks dos slots.
type AtomicSequence struct {
	last atomic.Int64
}

func NewAtomicSequence() *AtomicSequence { return &AtomicSequence{} }

// Next implementa domain.IDSequence.
func (s *AtomicSequence) Next() domain.EntryID {
	return domain.EntryID(s.last.Add(1))
}
