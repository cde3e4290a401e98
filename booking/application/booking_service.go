package application

import (
	"context"
	"errors"
	"log"
	"time"

	"opd-booking/booking/domain"

	"golang.org/x/time/rate"
)

// BookingService concentra os casos de uso de reserva.
//
// Cada operação resolve um slot e chama exatamente uma operação do núcleo
// (Admit, Cancel ou List). Stats e Events são opcionais e best-effort.
type BookingService struct {
	Registry domain.Registry
	Stats    domain.StatsStore
	Events   domain.EventPublisher

	// Now fornece o horário de chegada quando o chamador não informa um.
	Now func() time.Time
	// RejectLog limita os logs de rejeição (slot cheio). Nil registra todos.
	RejectLog *rate.Sometimes
}

// RegisterDoctor cria (ou recria) um médico com seus slots. Um médico sem
// slots é válido.
func (s *BookingService) RegisterDoctor(_ context.Context, doctor domain.DoctorID, capacities map[domain.SlotID]int) error {
	if err := s.Registry.PutDoctor(doctor, capacities); err != nil {
		return err
	}
	log.Printf("doctor %q registered with %d slot(s)", doctor, len(capacities))
	return nil
}

// Doctor lista os slots do médico.
func (s *BookingService) Doctor(_ context.Context, doctor domain.DoctorID) ([]domain.SlotInfo, error) {
	return s.Registry.Doctor(doctor)
}

// Book admite uma reserva de prioridade p em doctor/slot. Um at zero usa Now.
func (s *BookingService) Book(ctx context.Context, doctor domain.DoctorID, slot domain.SlotID, p domain.Priority, at time.Time) (domain.Admission, error) {
	sl, err := s.Registry.Slot(doctor, slot)
	if err != nil {
		return domain.Admission{}, err
	}
	if at.IsZero() {
		at = s.now()
	}

	adm, err := sl.Admit(p, at)
	switch {
	case errors.Is(err, domain.ErrSlotFull):
		s.record(ctx, doctor, slot, domain.OutcomeRejected, p)
		s.logReject(doctor, slot, p)
		return domain.Admission{}, err
	case errors.Is(err, domain.ErrInvalidPriority):
		s.record(ctx, doctor, slot, domain.OutcomeInvalid, "")
		return domain.Admission{}, err
	case err != nil:
		return domain.Admission{}, err
	}

	s.record(ctx, doctor, slot, domain.OutcomeAdmitted, adm.Entry.Priority)
	s.publish(domain.EventAdmitted, doctor, slot, adm.Entry)
	if adm.Evicted != nil {
		s.record(ctx, doctor, slot, domain.OutcomeEvicted, adm.Evicted.Priority)
		s.publish(domain.EventEvicted, doctor, slot, *adm.Evicted)
		log.Printf("slot %s/%s: token %d (%s) evicted by token %d (%s)",
			doctor, slot, adm.Evicted.ID, adm.Evicted.Priority, adm.Entry.ID, adm.Entry.Priority)
	}
	return adm, nil
}

// Cancel remove a reserva id de doctor/slot.
func (s *BookingService) Cancel(ctx context.Context, doctor domain.DoctorID, slot domain.SlotID, id domain.EntryID) error {
	sl, err := s.Registry.Slot(doctor, slot)
	if err != nil {
		return err
	}

	removed, err := sl.Cancel(id)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			s.record(ctx, doctor, slot, domain.OutcomeNotFound, "")
		}
		return err
	}

	s.record(ctx, doctor, slot, domain.OutcomeCancelled, removed.Priority)
	s.publish(domain.EventCancelled, doctor, slot, removed)
	return nil
}

// Status retorna os ocupantes do slot na ordem canônica, com a capacidade.
func (s *BookingService) Status(_ context.Context, doctor domain.DoctorID, slot domain.SlotID) ([]domain.EntryView, int, error) {
	sl, err := s.Registry.Slot(doctor, slot)
	if err != nil {
		return nil, 0, err
	}
	return sl.List(), sl.Capacity(), nil
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *BookingService) record(ctx context.Context, doctor domain.DoctorID, slot domain.SlotID, outcome domain.Outcome, p domain.Priority) {
	if s.Stats == nil {
		return
	}
	err := s.Stats.Record(ctx, domain.StatsEvent{
		Doctor:   doctor,
		Slot:     slot,
		Outcome:  outcome,
		Priority: p,
		At:       s.now(),
	})
	if err != nil {
		log.Printf("stats: record %s for %s/%s: %v", outcome, doctor, slot, err)
	}
}

func (s *BookingService) publish(t domain.EventType, doctor domain.DoctorID, slot domain.SlotID, e domain.EntryView) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(domain.Event{
		Type:     t,
		Doctor:   doctor,
		Slot:     slot,
		EntryID:  e.ID,
		Priority: e.Priority,
		At:       s.now(),
	})
}

func (s *BookingService) logReject(doctor domain.DoctorID, slot domain.SlotID, p domain.Priority) {
	msg := func() { log.Printf("slot %s/%s full: %s request rejected", doctor, slot, p) }
	if s.RejectLog == nil {
		msg()
		return
	}
	s.RejectLog.Do(msg)
}
