package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"opd-booking/booking/domain"
)

type config struct {
	listenAddr         string
	concurrencyMax     int
	concurrencyTimeout time.Duration
	corsOrigins        []string
	rejectLogInterval  time.Duration
	eventsEnabled      bool
	seed               []doctorSeed

	statsEnabled       bool
	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackSlots    bool
}

type doctorSeed struct {
	doctor domain.DoctorID
	slots  map[domain.SlotID]int
}

func readConfig() (config, error) {
	var env envReader
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.concurrencyMax = env.intDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = env.durationDefault("CONCURRENCY_TIMEOUT", 0)
	cfg.corsOrigins = splitList(getenvDefault("CORS_ALLOWED_ORIGINS", "*"))
	cfg.rejectLogInterval = env.durationDefault("REJECT_LOG_INTERVAL", 5*time.Second)
	cfg.eventsEnabled = env.boolDefault("EVENTS_ENABLED", true)

	cfg.statsEnabled = env.boolDefault("STATS_ENABLED", false)
	cfg.statsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")
	cfg.statsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = env.intDefault("STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "opd:stats")
	cfg.statsTTL = env.durationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackSlots = env.boolDefault("STATS_TRACK_SLOTS", true)

	if err := env.err(); err != nil {
		return config{}, err
	}

	seed, err := parseSeed(os.Getenv("SEED_DOCTORS"))
	if err != nil {
		return config{}, fmt.Errorf("SEED_DOCTORS: %w", err)
	}
	cfg.seed = seed

	if cfg.statsEnabled && strings.TrimSpace(cfg.statsRedisAddr) == "" {
		return config{}, errors.New("STATS_REDIS_ADDR is required when STATS_ENABLED=true")
	}
	if cfg.statsBucket != "minute" && cfg.statsBucket != "none" {
		return config{}, errors.New(`STATS_BUCKET must be "minute" or "none"`)
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

// parseSeed lê "dr1:9am=2,10am=1;dr2:9am=3".
func parseSeed(s string) ([]doctorSeed, error) {
	var out []doctorSeed
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		doctor, slots, ok := strings.Cut(part, ":")
		doctor = strings.TrimSpace(doctor)
		if !ok || doctor == "" {
			return nil, fmt.Errorf("invalid entry %q, want doctor:slot=capacity,...", part)
		}

		seed := doctorSeed{doctor: domain.DoctorID(doctor), slots: make(map[domain.SlotID]int)}
		for _, pair := range strings.Split(slots, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			slot, raw, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid slot %q for doctor %q", pair, doctor)
			}
			capacity, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid capacity %q for %s/%s", raw, doctor, slot)
			}
			seed.slots[domain.SlotID(strings.TrimSpace(slot))] = capacity
		}
		out = append(out, seed)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envReader lê variáveis tipadas e acumula erros de parsing: um valor
// malformado aborta a inicialização em vez de cair no padrão.
type envReader struct {
	errs []error
}

func (e *envReader) err() error { return errors.Join(e.errs...) }

func (e *envReader) fail(k, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", k, v, err))
}

func (e *envReader) intDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return i
}

func (e *envReader) boolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return b
}

func (e *envReader) durationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return d
}
