// Package application contém os casos de uso de reserva de slots e de limite
// de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: BookingService.Book resolve o slot no Registry, chama Slot.Admit e
// registra estatísticas/eventos sem deixar que eles derrubem a operação.
package application
