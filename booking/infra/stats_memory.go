package infra

import (
	"context"
	"maps"
	"sync"

	"opd-booking/booking/domain"
)

// Counters conta decisões por resultado.
type Counters map[domain.Outcome]int64

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	bySlot     map[string]Counters
	byPriority map[domain.Priority]Counters

	trackPriorities bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackPriorities(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackPriorities = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:      make(Counters),
		bySlot:     make(map[string]Counters),
		byPriority: make(map[domain.Priority]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// slotKey é a chave "médico/slot" usada nas séries por slot.
func slotKey(doctor domain.DoctorID, slot domain.SlotID) string {
	return string(doctor) + "/" + string(slot)
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	key := slotKey(ev.Doctor, ev.Slot)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++

	c := s.bySlot[key]
	if c == nil {
		c = make(Counters)
		s.bySlot[key] = c
	}
	c[ev.Outcome]++

	if s.trackPriorities && ev.Priority.Valid() {
		p := s.byPriority[ev.Priority]
		if p == nil {
			p = make(Counters)
			s.byPriority[ev.Priority] = p
		}
		p[ev.Outcome]++
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.total)
}

func (s *MemoryStatsStore) BySlot() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.bySlot))
	for k, v := range s.bySlot {
		out[k] = maps.Clone(v)
	}
	return out
}

func (s *MemoryStatsStore) ByPriority() map[domain.Priority]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Priority]Counters, len(s.byPriority))
	for k, v := range s.byPriority {
		out[k] = maps.Clone(v)
	}
	return out
}
