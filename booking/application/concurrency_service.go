package application

import (
	"context"
	"time"

	"opd-booking/booking/domain"
)

// ConcurrencyService limita quantas requisições da API de reservas (book,
// cancel, status, cadastro de médicos) rodam ao mesmo tempo. Conexões
// websocket ficam de fora porque o middleware HTTP as deixa passar.
//
// Sem Pool não há limite.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout é quanto uma requisição espera por vaga antes de ser
	// recusada. Zero espera até o contexto do cliente encerrar.
	AcquireTimeout time.Duration
}

func noRelease() {}

// Acquire reserva uma vaga para uma requisição. Com ok=false nada foi
// reservado; o release devolvido é sempre seguro de chamar.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	switch {
	case s.Pool == nil:
		return noRelease, true
	case s.AcquireTimeout > 0:
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok = s.Pool.Acquire(ctx)
	if !ok {
		return noRelease, false
	}
	return release, true
}
