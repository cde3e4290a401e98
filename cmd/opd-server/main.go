package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"opd-booking/booking"
	"opd-booking/booking/application"
	"opd-booking/booking/domain"
	"opd-booking/booking/infra"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; using process environment")
	}

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var (
		statsStore  domain.StatsStore
		statsReader booking.StatsReader
	)
	if cfg.statsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}

		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackSlots(cfg.statsTrackSlots),
		)
	} else {
		// sem Redis os contadores ficam em memória e saem em GET /stats
		mem := infra.NewMemoryStatsStore(infra.WithTrackPriorities(true))
		statsStore = mem
		statsReader = mem
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := &application.BookingService{
		Registry:  infra.NewMemoryRegistry(infra.NewAtomicSequence()),
		Stats:     statsStore,
		RejectLog: &rate.Sometimes{First: 1, Interval: cfg.rejectLogInterval},
	}

	var hub *infra.Hub
	if cfg.eventsEnabled {
		hub = infra.NewHub(infra.WithCheckOrigin(originAllowed(cfg.corsOrigins)))
		go hub.Run(ctx)
		svc.Events = hub
	}

	for _, s := range cfg.seed {
		if err := svc.RegisterDoctor(ctx, s.doctor, s.slots); err != nil {
			log.Fatalf("seed doctor %q: %v", s.doctor, err)
		}
	}

	opts := booking.RouterOptions{Service: svc, Stats: statsReader}
	if hub != nil {
		opts.Events = hub
	}

	var pool *infra.ChanPool
	if cfg.concurrencyMax > 0 {
		pool = infra.NewChanPool(cfg.concurrencyMax)
		opts.InFlight = pool.InFlight
	}

	h := http.Handler(booking.NewRouter(opts))
	if pool != nil {
		h = booking.ConcurrencyMiddleware(booking.ConcurrencyOptions{
			Pool:           pool,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
			Skip:           func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/ws/") },
		})(h)
	}
	h = cors.New(cors.Options{
		AllowedOrigins: cfg.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Slot-Capacity", "X-Slot-Occupancy"},
	}).Handler(h)
	h = booking.RequestLogger(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("opd-server listening on %s", cfg.listenAddr)
	log.Printf("concurrency: max=%d acquireTimeout=%s", cfg.concurrencyMax, cfg.concurrencyTimeout)
	log.Printf("stats: redis=%v redisAddr=%q bucket=%q ttl=%s trackSlots=%v", cfg.statsEnabled, cfg.statsRedisAddr, cfg.statsBucket, cfg.statsTTL, cfg.statsTrackSlots)
	log.Printf("events: enabled=%v corsOrigins=%v seededDoctors=%d", cfg.eventsEnabled, cfg.corsOrigins, len(cfg.seed))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// originAllowed espelha CORS_ALLOWED_ORIGINS no upgrade do websocket.
// Requisições sem Origin (clientes fora do navegador) passam.
func originAllowed(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(origins, "*") {
			return true
		}
		return slices.Contains(origins, origin)
	}
}
