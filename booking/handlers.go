package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"opd-booking/booking/application"
	"opd-booking/booking/domain"
	"opd-booking/booking/infra"

	"github.com/julienschmidt/httprouter"
)

// Subscriber inscreve uma conexão (websocket) nos eventos de um slot.
type Subscriber interface {
	ServeWS(w http.ResponseWriter, r *http.Request, doctor domain.DoctorID, slot domain.SlotID)
}

// StatsReader expõe contadores acumulados em memória para GET /stats.
type StatsReader interface {
	Total() infra.Counters
	BySlot() map[string]infra.Counters
	ByPriority() map[domain.Priority]infra.Counters
}

type RouterOptions struct {
	Service *application.BookingService
	// Stats habilita GET /stats quando não nil.
	Stats StatsReader
	// Events habilita GET /ws/:doctor_id/:slot_id quando não nil.
	Events Subscriber
	// InFlight, se definido, aparece em /health.
	InFlight func() int
	// MaxBodyBytes limita o corpo de POST /doctor (padrão 64KiB).
	MaxBodyBytes int64
}

type handlers struct {
	svc          *application.BookingService
	events       Subscriber
	stats        StatsReader
	inFlight     func() int
	maxBodyBytes int64
}

// NewRouter monta as rotas da API de reservas.
func NewRouter(opts RouterOptions) *httprouter.Router {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	h := &handlers{
		svc:          opts.Service,
		events:       opts.Events,
		stats:        opts.Stats,
		inFlight:     opts.InFlight,
		maxBodyBytes: opts.MaxBodyBytes,
	}

	r := httprouter.New()
	r.GET("/", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		http.Redirect(w, req, "/health", http.StatusTemporaryRedirect)
	})
	r.GET("/health", h.health)
	r.POST("/doctor/:doctor_id", h.createDoctor)
	r.GET("/doctor/:doctor_id", h.getDoctor)
	r.POST("/book", h.book)
	r.POST("/cancel", h.cancel)
	r.GET("/status/:doctor_id/:slot_id", h.status)
	if h.events != nil {
		r.GET("/ws/:doctor_id/:slot_id", h.subscribe)
	}
	if h.stats != nil {
		r.GET("/stats", h.statsSnapshot)
	}
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		log.Printf("panic serving %s %s: %v", req.Method, req.URL.Path, v)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
	return r
}

type healthResponse struct {
	Status   string `json:"status"`
	InFlight *int   `json:"in_flight,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	resp := healthResponse{Status: "ok"}
	if h.inFlight != nil {
		n := h.inFlight()
		resp.InFlight = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Total      infra.Counters                     `json:"total"`
	BySlot     map[string]infra.Counters          `json:"by_slot"`
	ByPriority map[domain.Priority]infra.Counters `json:"by_priority"`
}

func (h *handlers) statsSnapshot(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, statsResponse{
		Total:      h.stats.Total(),
		BySlot:     h.stats.BySlot(),
		ByPriority: h.stats.ByPriority(),
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

// createDoctor espera um JSON {"<slot_id>": capacidade, ...}.
func (h *handlers) createDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctor := domain.DoctorID(ps.ByName("doctor_id"))

	var body map[string]int
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "body must be an object of slot_id -> capacity")
		return
	}

	caps := make(map[domain.SlotID]int, len(body))
	for slot, capacity := range body {
		caps[domain.SlotID(slot)] = capacity
	}
	if err := h.svc.RegisterDoctor(r.Context(), doctor, caps); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Doctor %s created", doctor)})
}

type slotResponse struct {
	SlotID    domain.SlotID `json:"slot_id"`
	Capacity  int           `json:"capacity"`
	Occupancy int           `json:"occupancy"`
}

type doctorResponse struct {
	DoctorID domain.DoctorID `json:"doctor_id"`
	Slots    []slotResponse  `json:"slots"`
}

func (h *handlers) getDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctor := domain.DoctorID(ps.ByName("doctor_id"))
	infos, err := h.svc.Doctor(r.Context(), doctor)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := doctorResponse{DoctorID: doctor, Slots: make([]slotResponse, 0, len(infos))}
	for _, in := range infos {
		resp.Slots = append(resp.Slots, slotResponse{SlotID: in.ID, Capacity: in.Capacity, Occupancy: in.Occupancy})
	}
	writeJSON(w, http.StatusOK, resp)
}

type bookResponse struct {
	TokenID        domain.EntryID  `json:"token_id"`
	Status         string          `json:"status"`
	Priority       domain.Priority `json:"priority"`
	EvictedTokenID *domain.EntryID `json:"evicted_token_id,omitempty"`
}

func (h *handlers) book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	doctor, slot, ok := requireSlotParams(w, q.Get("doctor_id"), q.Get("slot_id"))
	if !ok {
		return
	}

	prio, err := domain.ParsePriority(q.Get("source"))
	if err != nil {
		writeError(w, err)
		return
	}
	at, err := parseCreatedAt(q.Get("created_at"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	adm, err := h.svc.Book(r.Context(), doctor, slot, prio, at)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := bookResponse{TokenID: adm.Entry.ID, Status: "confirmed", Priority: adm.Entry.Priority}
	if adm.Evicted != nil {
		id := adm.Evicted.ID
		resp.EvictedTokenID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusOnlyResponse struct {
	Status string `json:"status"`
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	doctor, slot, ok := requireSlotParams(w, q.Get("doctor_id"), q.Get("slot_id"))
	if !ok {
		return
	}
	id, err := parseEntryID(q.Get("token_id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.svc.Cancel(r.Context(), doctor, slot, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOnlyResponse{Status: "cancelled"})
}

type tokenResponse struct {
	TokenID   domain.EntryID  `json:"token_id"`
	Priority  domain.Priority `json:"priority"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctor := domain.DoctorID(ps.ByName("doctor_id"))
	slot := domain.SlotID(ps.ByName("slot_id"))

	entries, capacity, err := h.svc.Status(r.Context(), doctor, slot)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]tokenResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, tokenResponse{TokenID: e.ID, Priority: e.Priority, Active: e.Active, CreatedAt: e.CreatedAt})
	}
	w.Header().Set("X-Slot-Capacity", formatInt(capacity))
	w.Header().Set("X-Slot-Occupancy", formatInt(len(entries)))
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) subscribe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctor := domain.DoctorID(ps.ByName("doctor_id"))
	slot := domain.SlotID(ps.ByName("slot_id"))

	// só inscreve em slots que existem
	if _, _, err := h.svc.Status(r.Context(), doctor, slot); err != nil {
		writeError(w, err)
		return
	}
	h.events.ServeWS(w, r, doctor, slot)
}

func requireSlotParams(w http.ResponseWriter, doctor, slot string) (domain.DoctorID, domain.SlotID, bool) {
	if doctor == "" || slot == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "doctor_id and slot_id are required")
		return "", "", false
	}
	return domain.DoctorID(doctor), domain.SlotID(slot), true
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// writeError traduz erros do domínio para status HTTP.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDoctorNotFound):
		writeDetail(w, http.StatusNotFound, "Doctor not found")
	case errors.Is(err, domain.ErrSlotNotFound):
		writeDetail(w, http.StatusNotFound, "Slot not found")
	case errors.Is(err, domain.ErrEntryNotFound):
		writeDetail(w, http.StatusNotFound, "Token not found")
	case errors.Is(err, domain.ErrSlotFull):
		writeDetail(w, http.StatusBadRequest, "Slot full, lower priority")
	case errors.Is(err, domain.ErrInvalidPriority):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidDoctor):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("unexpected error: %v", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
