package infra

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"opd-booking/booking/domain"
)

// MemoryRegistry guarda médicos e seus slots em memória.
//
// O lock do registry protege apenas os mapas; cada Slot tem o próprio lock,
// então operações em slots diferentes não disputam nada aqui além de um RLock.
type MemoryRegistry struct {
	mu      sync.RWMutex
	doctors map[domain.DoctorID]map[domain.SlotID]*domain.Slot
	seq     domain.IDSequence
}

// NewMemoryRegistry cria um registry cujos slots compartilham seq.
func NewMemoryRegistry(seq domain.IDSequence) *MemoryRegistry {
	return &MemoryRegistry{
		doctors: make(map[domain.DoctorID]map[domain.SlotID]*domain.Slot),
		seq:     seq,
	}
}

// PutDoctor implementa domain.Registry. Um médico existente é substituído
// por inteiro (as reservas dele são descartadas). Em caso de erro nada muda.
func (r *MemoryRegistry) PutDoctor(doctor domain.DoctorID, capacities map[domain.SlotID]int) error {
	if strings.TrimSpace(string(doctor)) == "" {
		return fmt.Errorf("%w: empty doctor id", domain.ErrInvalidDoctor)
	}

	slots := make(map[domain.SlotID]*domain.Slot, len(capacities))
	for id, capacity := range capacities {
		if strings.TrimSpace(string(id)) == "" {
			return fmt.Errorf("%w: empty slot id", domain.ErrInvalidDoctor)
		}
		// o slot id vira segmento de rota (/status/:doctor_id/:slot_id)
		if strings.Contains(string(id), "/") {
			return fmt.Errorf("%w: slot id %q contains '/'", domain.ErrInvalidDoctor, id)
		}
		s, err := domain.NewSlot(id, capacity, r.seq)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidDoctor, err)
		}
		slots[id] = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[doctor] = slots
	return nil
}

// Slot implementa domain.Registry.
func (r *MemoryRegistry) Slot(doctor domain.DoctorID, slot domain.SlotID) (*domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slots, ok := r.doctors[doctor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrDoctorNotFound, doctor)
	}
	s, ok := slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q/%q", domain.ErrSlotNotFound, doctor, slot)
	}
	return s, nil
}

// Doctor implementa domain.Registry. Os slots vêm ordenados por id.
func (r *MemoryRegistry) Doctor(doctor domain.DoctorID) ([]domain.SlotInfo, error) {
	r.mu.RLock()
	slots, ok := r.doctors[doctor]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: %q", domain.ErrDoctorNotFound, doctor)
	}
	list := make([]*domain.Slot, 0, len(slots))
	for _, s := range slots {
		list = append(list, s)
	}
	r.mu.RUnlock()

	out := make([]domain.SlotInfo, 0, len(list))
	for _, s := range list {
		out = append(out, domain.SlotInfo{ID: s.ID(), Capacity: s.Capacity(), Occupancy: s.Len()})
	}
	slices.SortFunc(out, func(a, b domain.SlotInfo) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out, nil
}
