package domain

import "errors"

var (
	// ErrSlotFull indica que nenhum ocupante tem prioridade estritamente
	// menor que a do pedido. Nada foi alterado no slot.
	ErrSlotFull = errors.New("slot full: capacity exhausted at equal or higher priority")

	ErrEntryNotFound   = errors.New("entry not found")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidCapacity = errors.New("slot capacity must be > 0")
	ErrNilSequence     = errors.New("id sequence is required")

	ErrDoctorNotFound = errors.New("doctor not found")
	ErrSlotNotFound   = errors.New("slot not found")
	ErrInvalidDoctor  = errors.New("invalid doctor")
)
