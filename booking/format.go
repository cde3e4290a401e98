// utilitários pequenos para formatação/parsing de valores em headers e query.

package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"opd-booking/booking/domain"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func parseEntryID(s string) (domain.EntryID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid token_id %q", s)
	}
	return domain.EntryID(n), nil
}

// parseCreatedAt aceita RFC3339 (com ou sem fração) ou milissegundos Unix.
// Vazio retorna o zero, que o serviço troca pelo horário atual.
func parseCreatedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid created_at %q", s)
	}
	return t, nil
}
