package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/desertthunder/alchemy/internal/manager"
	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/server"
	"github.com/desertthunder/alchemy/internal/shared"
	"github.com/desertthunder/alchemy/internal/tasks"
)

const maxBodySize = 1 << 20

// Handler serves the engines management views.
type Handler struct {
	service *manager.Service
	auth    *server.Authenticator
	checker *tasks.Checker
	logger  *log.Logger
}

var _ server.Handler = (*Handler)(nil)

// NewHandler creates a [Handler]. A nil checker disables the connectivity check route.
func NewHandler(service *manager.Service, auth *server.Authenticator, checker *tasks.Checker, logger *log.Logger) *Handler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Handler{
		service: service,
		auth:    auth,
		checker: checker,
		logger:  shared.WithLogger(logger, "component", "web"),
	}
}

// RegisterRoutes implements [server.Handler].
func (h *Handler) RegisterRoutes(r *mux.Router) {
	manage := h.auth.Require(models.ManageSQLEnginesPermission)
	protect := func(fn http.HandlerFunc) http.Handler { return manage(fn) }

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/vocabularies/engines", h.vocabulary).Methods(http.MethodGet)
	r.HandleFunc("/api/engines", h.table).Methods(http.MethodGet)

	r.Handle("/api/engines/add", protect(h.addForm)).Methods(http.MethodGet)
	r.Handle("/api/engines/add", protect(h.add)).Methods(http.MethodPost)
	r.Handle("/api/engines/{oid}/clone", protect(h.cloneForm)).Methods(http.MethodGet)
	r.Handle("/api/engines/{oid}/clone", protect(h.clone)).Methods(http.MethodPost)
	r.Handle("/api/engines/{oid}/properties", protect(h.editForm)).Methods(http.MethodGet)
	r.Handle("/api/engines/{oid}/properties", protect(h.edit)).Methods(http.MethodPost)
	r.Handle("/api/engines/{oid}/history", protect(h.history)).Methods(http.MethodGet)
	r.Handle("/api/engines/{oid}/test", protect(h.test)).Methods(http.MethodPost)
	r.Handle("/api/engines/{oid}", protect(h.remove)).Methods(http.MethodDelete)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"engines": h.service.Registry().Len(),
	})
}

// VocabularyTerm is one entry of the engines vocabulary.
type VocabularyTerm struct {
	Value string `json:"value"`
	Title string `json:"title"`
}

func (h *Handler) vocabulary(w http.ResponseWriter, r *http.Request) {
	names := h.service.Registry().Names()
	terms := make([]VocabularyTerm, 0, len(names))
	for _, name := range names {
		terms = append(terms, VocabularyTerm{Value: name, Title: name})
	}
	server.WriteJSON(w, http.StatusOK, terms)
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) {
	engines, err := h.service.List()
	if err != nil {
		h.fail(w, "failed to list engines", err)
		return
	}
	manage := h.auth.Allows(r, models.ManageSQLEnginesPermission)
	server.WriteJSON(w, http.StatusOK, NewTable(h.service.Info(), engines, manage))
}

func (h *Handler) addForm(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, AddForm(h.service.Info()))
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	props := models.DefaultEngineProperties()
	if err := decodeBody(r, &props); err != nil {
		server.WriteErr(w, err)
		return
	}

	engine, err := h.service.Add(props)
	if err != nil {
		h.formFailed(w, "failed to add engine", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, RenderAdd(h.service.Info(), engine))
}

func (h *Handler) cloneForm(w http.ResponseWriter, r *http.Request) {
	engine, err := h.service.Get(mux.Vars(r)["oid"])
	if err != nil {
		server.WriteErr(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, CloneForm(engine))
}

type cloneRequest struct {
	Name string `json:"name"`
}

func (h *Handler) clone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := decodeBody(r, &req); err != nil {
		server.WriteErr(w, err)
		return
	}

	engine, err := h.service.Clone(mux.Vars(r)["oid"], req.Name)
	if err != nil {
		h.formFailed(w, "failed to clone engine", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, RenderAdd(h.service.Info(), engine))
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	engine, err := h.service.Get(mux.Vars(r)["oid"])
	if err != nil {
		server.WriteErr(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, EditForm(h.service.Info(), engine))
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	oid := mux.Vars(r)["oid"]
	current, err := h.service.Get(oid)
	if err != nil {
		server.WriteErr(w, err)
		return
	}

	props := current.Properties()
	if err := decodeBody(r, &props); err != nil {
		server.WriteErr(w, err)
		return
	}

	engine, changes, err := h.service.Edit(oid, props)
	if err != nil {
		h.formFailed(w, "failed to edit engine", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, orNoChanges(RenderEdit(h.service.Info(), engine, changes)))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	engine, err := h.service.Remove(mux.Vars(r)["oid"])
	if err != nil {
		h.fail(w, "failed to remove engine", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, RenderDelete(h.service.Info(), engine))
}

// HistoryEntry is one lifecycle event of an engine.
type HistoryEntry struct {
	ID        string           `json:"id"`
	EngineID  string           `json:"engine_id"`
	Engine    string           `json:"engine"`
	Kind      models.EventKind `json:"kind"`
	Changes   []string         `json:"changes"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewHistoryEntries converts stored events to their JSON form, keeping their order.
func NewHistoryEntries(events []*models.EngineEvent) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(events))
	for _, e := range events {
		changes := e.Changes()
		if changes == nil {
			changes = []string{}
		}
		entries = append(entries, HistoryEntry{
			ID:        e.ID(),
			EngineID:  e.EngineID(),
			Engine:    e.EngineName(),
			Kind:      e.Kind(),
			Changes:   changes,
			CreatedAt: e.CreatedAt(),
		})
	}
	return entries
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	oid := mux.Vars(r)["oid"]
	if _, err := h.service.Get(oid); err != nil {
		server.WriteErr(w, err)
		return
	}

	events, err := h.service.History(oid)
	if err != nil {
		h.fail(w, "failed to read engine history", err)
		return
	}

	server.WriteJSON(w, http.StatusOK, NewHistoryEntries(events))
}

// CheckResponse is the result of a connectivity check.
type CheckResponse struct {
	Engine    string  `json:"engine"`
	OK        bool    `json:"ok"`
	Attempts  uint    `json:"attempts"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
	Open      int     `json:"open_connections"`
	InUse     int     `json:"in_use"`
	Idle      int     `json:"idle"`
	MaxOpen   int     `json:"max_open_connections"`
}

// NewCheckResponse converts a [tasks.CheckResult].
func NewCheckResponse(res tasks.CheckResult) CheckResponse {
	resp := CheckResponse{
		Engine:    res.Engine,
		OK:        res.OK,
		Attempts:  res.Attempts,
		LatencyMS: float64(res.Latency.Microseconds()) / 1000,
		Open:      res.Stats.OpenConnections,
		InUse:     res.Stats.InUse,
		Idle:      res.Stats.Idle,
		MaxOpen:   res.Stats.MaxOpenConnections,
	}
	if res.Error != nil {
		resp.Error = res.Error.Error()
	}
	return resp
}

func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		server.WriteErr(w, fmt.Errorf("%w: connectivity checks", shared.ErrServiceUnavailable))
		return
	}

	engine, err := h.service.Get(mux.Vars(r)["oid"])
	if err != nil {
		server.WriteErr(w, err)
		return
	}

	res := h.checker.Check(r.Context(), engine.Name())
	server.WriteJSON(w, http.StatusOK, NewCheckResponse(res))
}

// formFailed answers a rejected form with its field errors, other failures with [server.WriteErr].
func (h *Handler) formFailed(w http.ResponseWriter, msg string, err error) {
	var form *manager.FormError
	if errors.As(err, &form) {
		server.WriteJSON(w, http.StatusBadRequest, NewFormErrorResult(form))
		return
	}
	h.fail(w, msg, err)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if status, _ := server.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	server.WriteErr(w, err)
}

// decodeBody decodes a JSON body over v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
