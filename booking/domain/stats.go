package domain

import (
	"context"
	"time"
)

// Outcome é o resultado de uma operação de reserva, do ponto de vista das
// estatísticas.
type Outcome string

const (
	OutcomeAdmitted  Outcome = "admitted"
	OutcomeEvicted   Outcome = "evicted"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeInvalid   Outcome = "invalid"
)

// StatsEvent representa uma decisão tomada sobre um slot.
//
// Um admit que despeja gera dois eventos: OutcomeAdmitted para o novo e
// OutcomeEvicted para o despejado.
type StatsEvent struct {
	Doctor   DoctorID
	Slot     SlotID
	Outcome  Outcome
	Priority Priority // vazio quando não se aplica (ex: cancel de id inexistente)

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de reservas.
//
// Implementações podem armazenar em Redis, memória, etc.
// O chamador trata erro como best-effort (não derruba a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
