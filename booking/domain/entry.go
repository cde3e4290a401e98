package domain

import (
	"cmp"
	"time"
)

// EntryID identifica uma reserva. É único no processo inteiro (não por slot)
// e nunca é reutilizado.
type EntryID int64

// Entry é uma reserva admitida em um slot.
//
// ID, Priority e CreatedAt são fixos. active vira false uma única vez
// (despejo ou cancelamento) e no mesmo instante a entry sai do slot.
type Entry struct {
	ID        EntryID
	Priority  Priority
	CreatedAt time.Time

	active bool
}

func (e *Entry) Active() bool { return e.active }

func (e *Entry) deactivate() { e.active = false }

func (e *Entry) view() EntryView {
	return EntryView{
		ID:        e.ID,
		Priority:  e.Priority,
		CreatedAt: e.CreatedAt,
		Active:    e.active,
	}
}

// EntryView é uma cópia somente-leitura de uma Entry, entregue aos chamadores.
type EntryView struct {
	ID        EntryID
	Priority  Priority
	CreatedAt time.Time
	Active    bool
}

// compareEntries implementa a ordem canônica: prioridade desc, chegada asc.
// Chegadas idênticas são desempatadas pelo id (asc) para manter a ordem
// estrita.
func compareEntries(a, b *Entry) int {
	if c := b.Priority.Compare(a.Priority); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// worseForEviction diz se a é um candidato a despejo melhor que b:
// menor prioridade e, na mesma classe, a chegada mais antiga.
func worseForEviction(a, b *Entry) bool {
	if c := a.Priority.Compare(b.Priority); c != 0 {
		return c < 0
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}
