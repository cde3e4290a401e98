// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - AtomicSequence: ids únicos no processo (sync/atomic)
//   - MemoryRegistry: médicos e slots em memória
//   - MemoryStatsStore / RedisStatsStore: contadores de decisões
//   - Hub: eventos de slot via websocket (gorilla/websocket)
//   - ChanPool: semáforo simples para limite de concorrência HTTP
package infra
