package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Priority é a classe de prioridade de uma reserva.
//
// O conjunto é fechado: a ordem vem da tabela priorityRank e não da
// representação do valor.
type Priority string

const (
	PriorityWalkIn    Priority = "WALK_IN"
	PriorityOnline    Priority = "ONLINE"
	PriorityFollowUp  Priority = "FOLLOW_UP"
	PriorityPaid      Priority = "PAID"
	PriorityEmergency Priority = "EMERGENCY"
)

// priorityRank é a ordem total entre as classes (maior = mais urgente).
// O rank também é o código numérico aceito na borda (source=1..5).
var priorityRank = map[Priority]int{
	PriorityWalkIn:    1,
	PriorityOnline:    2,
	PriorityFollowUp:  3,
	PriorityPaid:      4,
	PriorityEmergency: 5,
}

var priorityByRank = [...]Priority{
	1: PriorityWalkIn,
	2: PriorityOnline,
	3: PriorityFollowUp,
	4: PriorityPaid,
	5: PriorityEmergency,
}

// Priorities retorna as classes em ordem crescente de urgência.
func Priorities() []Priority {
	out := make([]Priority, 0, len(priorityRank))
	for _, p := range priorityByRank[1:] {
		out = append(out, p)
	}
	return out
}

func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank retorna a posição de p na ordem total, ou 0 se p for inválida.
func (p Priority) Rank() int { return priorityRank[p] }

// Code é o código numérico usado na API (igual ao rank).
func (p Priority) Code() int { return p.Rank() }

func (p Priority) String() string {
	if !p.Valid() {
		return "INVALID(" + string(p) + ")"
	}
	return string(p)
}

// Compare retorna -1, 0 ou +1 conforme p seja menos, igualmente ou mais
// urgente que other.
func (p Priority) Compare(other Priority) int {
	a, b := p.Rank(), other.Rank()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ParsePriority aceita o nome da classe (ex: "walk_in", "Follow-Up") ou o
// código numérico ("1".."5").
func ParsePriority(s string) (Priority, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidPriority)
	}

	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 || n >= len(priorityByRank) {
			return "", fmt.Errorf("%w: code %d", ErrInvalidPriority, n)
		}
		return priorityByRank[n], nil
	}

	name := strings.ToUpper(v)
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	p := Priority(name)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

func (p Priority) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, string(p))
	}
	return json.Marshal(string(p))
}

// UnmarshalJSON aceita tanto "PAID" quanto 4.
func (p *Priority) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("%w: code %v", ErrInvalidPriority, v)
		}
		s = strconv.Itoa(int(v))
	default:
		return fmt.Errorf("%w: %s", ErrInvalidPriority, string(b))
	}

	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
