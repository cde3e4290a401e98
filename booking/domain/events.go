package domain

import "time"

type EventType string

const (
	EventAdmitted  EventType = "admitted"
	EventEvicted   EventType = "evicted"
	EventCancelled EventType = "cancelled"
)

// Event é uma mudança no conjunto de ocupantes de um slot.
//
// O núcleo não avisa ninguém sobre despejos; quem quiser avisar o dono da
// reserva despejada assina esses eventos.
type Event struct {
	Type     EventType `json:"type"`
	Doctor   DoctorID  `json:"doctor_id"`
	Slot     SlotID    `json:"slot_id"`
	EntryID  EntryID   `json:"token_id"`
	Priority Priority  `json:"priority"`
	At       time.Time `json:"at"`
}

// EventPublisher distribui eventos de slot. Publish não pode bloquear.
type EventPublisher interface {
	Publish(ev Event)
}
