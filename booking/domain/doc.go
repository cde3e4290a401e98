// Package domain define os tipos e as regras de admissão de um slot de
// atendimento com capacidade fixa.
//
// O coração do pacote é o Slot: ele mantém os ocupantes ordenados pela ordem
// canônica (prioridade desc, chegada asc) e, quando cheio, admite uma
// prioridade maior despejando o pior ocupante.
//
// Este pacote não depende de net/http nem de implementações concretas
// (registro, estatísticas, websocket ficam em infra).
package domain
