package domain

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// SlotID identifica um slot dentro de um médico (ex: "9am").
type SlotID string

// Admission é o resultado de um Admit bem-sucedido.
type Admission struct {
	Entry EntryView
	// Evicted é a entry despejada para abrir espaço, ou nil se havia vaga.
	Evicted *EntryView
}

// Slot é um recurso de capacidade fixa disputado por reservas com prioridade.
//
// Invariantes (valem antes e depois de toda operação):
//   - occupants só contém entries ativas e len(occupants) <= capacity
//   - occupants está na ordem canônica, sem empates
//   - ids são únicos dentro do slot
//
// Admit, Cancel e List são serializados pelo mutex do slot; slots distintos
// não compartilham lock. A sequência de ids é compartilhada e tem sua própria
// sincronização.
type Slot struct {
	id       SlotID
	capacity int
	seq      IDSequence

	mu        sync.Mutex
	occupants []*Entry
}

func NewSlot(id SlotID, capacity int, seq IDSequence) (*Slot, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("slot %q: %w", id, ErrInvalidCapacity)
	}
	if seq == nil {
		return nil, ErrNilSequence
	}
	return &Slot{
		id:        id,
		capacity:  capacity,
		seq:       seq,
		occupants: make([]*Entry, 0, capacity),
	}, nil
}

func (s *Slot) ID() SlotID { return s.id }
func (s *Slot) Capacity() int { return s.capacity }

func (s *Slot) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.occupants)
}

// Admit tenta admitir uma reserva com prioridade p chegando em now
// (zero = agora).
//
//   - Com vaga: a reserva entra.
//   - Cheio: o pior ocupante (menor prioridade, chegada mais antiga) é
//     despejado se p for estritamente maior que a prioridade dele.
//   - Caso contrário retorna ErrSlotFull e o slot fica intacto.
//
// O id só é alocado quando a admissão acontece.
func (s *Slot) Admit(p Priority, now time.Time) (Admission, error) {
	if !p.Valid() {
		return Admission{}, fmt.Errorf("%w: %q", ErrInvalidPriority, string(p))
	}
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted *EntryView
	if len(s.occupants) >= s.capacity {
		idx := s.evictionCandidateLocked()
		victim := s.occupants[idx]
		if p.Compare(victim.Priority) <= 0 {
			return Admission{}, ErrSlotFull
		}
		s.removeLocked(idx)
		v := victim.view()
		evicted = &v
	}

	e := &Entry{
		ID:        s.seq.Next(),
		Priority:  p,
		CreatedAt: now,
		active:    true,
	}
	s.occupants = append(s.occupants, e)
	slices.SortFunc(s.occupants, compareEntries)

	return Admission{Entry: e.view(), Evicted: evicted}, nil
}

// Cancel remove a reserva id deste slot e retorna como ela ficou (inativa).
// Retorna ErrEntryNotFound se ela não for um ocupante atual (já despejada,
// cancelada ou de outro slot).
func (s *Slot) Cancel(id EntryID) (EntryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.occupants {
		if e.ID == id && e.active {
			s.removeLocked(i)
			return e.view(), nil
		}
	}
	return EntryView{}, fmt.Errorf("entry %d in slot %q: %w", id, s.id, ErrEntryNotFound)
}

// List retorna os ocupantes na ordem canônica.
func (s *Slot) List() []EntryView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EntryView, 0, len(s.occupants))
	for _, e := range s.occupants {
		out = append(out, e.view())
	}
	return out
}

// evictionCandidateLocked retorna o índice do pior ocupante. Requer slot não
// vazio e s.mu travado.
func (s *Slot) evictionCandidateLocked() int {
	worst := 0
	for i := 1; i < len(s.occupants); i++ {
		if worseForEviction(s.occupants[i], s.occupants[worst]) {
			worst = i
		}
	}
	return worst
}

// removeLocked desativa e remove occupants[i]; a ordem dos demais é mantida.
func (s *Slot) removeLocked(i int) {
	s.occupants[i].deactivate()
	s.occupants = slices.Delete(s.occupants, i, i+1)
}
