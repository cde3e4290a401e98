package domain

import "context"

// IDSequence entrega o próximo id único do processo.
// Implementações devem ser seguras para uso concorrente.
type IDSequence interface {
	Next() EntryID
}

// DoctorID identifica o dono de um conjunto de slots.
type DoctorID string

// SlotInfo é um resumo de um slot para listagens.
type SlotInfo struct {
	ID        SlotID
	Capacity  int
	Occupancy int
}

// Registry resolve (médico, slot) para um Slot. Não aplica regra de ordem
// nem de capacidade; isso é do Slot.
type Registry interface {
	// PutDoctor cria (ou recria) o médico com os slots e capacidades dados.
	PutDoctor(doctor DoctorID, capacities map[SlotID]int) error
	// Slot retorna ErrDoctorNotFound ou ErrSlotNotFound quando não existir.
	Slot(doctor DoctorID, slot SlotID) (*Slot, error)
	Doctor(doctor DoctorID) ([]SlotInfo, error)
}

// SlotPool representa um recurso com capacidade finita (ex: requisições HTTP
// em andamento).
//
// A semântica é: Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
