// Package booking fornece os adapters HTTP (net/http + httprouter) do serviço de
// reservas de slots com prioridade.
//
// Visão geral (camadas):
//
//   - domain: prioridades, entries, o Slot (admissão/despejo) e contratos
//   - application: casos de uso (reservar, cancelar, listar, limitar concorrência) sem net/http
//   - infra: implementações concretas (registry em memória, ids, stats, websocket)
//   - booking (este pacote): rotas, parsing de parâmetros e tradução de erros para status
//
// Fluxo de uma reserva:
//
//  1. Lê doctor_id, slot_id e source da query
//  2. Chama application.BookingService.Book
//  3. Traduz o resultado: 200 confirmado, 400 slot cheio, 404 médico/slot, 422 prioridade
//
// Variáveis de ambiente do binário (cmd/opd-server) controlam o comportamento,
// como LISTEN_ADDR, CONCURRENCY_MAX e STATS_ENABLED.
package booking
