// HTTP handlers for the pipeline service.
//
// All routes expect an x-user-id header forwarded by the Gateway; stage
// configuration additionally requires x-user-role: Administrator.
//
// Routes:
//
//	GET    /api/application-statuses/          → list stages (ordered)
//	POST   /api/application-statuses/          → create stage (appended at end)
//	PATCH  /api/application-statuses/{id}/     → rename stage
//	DELETE /api/application-statuses/{id}/     → delete stage (409 when in use)
//	POST   /api/application-statuses/reorder/  → apply full reordering
//	GET    /api/applications/                  → list applications
//	POST   /api/applications/                  → create application
//	GET    /api/applications/{id}/             → application with history
//	PATCH  /api/applications/{id}/             → apply status update
//	GET    /api/users/                         → users for assignment picker
package pipeline

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// Handler holds shared dependencies.
type Handler struct {
	registry *Registry
	engine   *Engine
}

// NewHandler returns a configured Handler.
func NewHandler(registry *Registry, engine *Engine) *Handler {
	return &Handler{registry: registry, engine: engine}
}

// RegisterRoutes mounts all pipeline-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/application-statuses/", h.handleStages)
	mux.HandleFunc("/api/applications/", h.handleApplications)
	mux.HandleFunc("/api/users/", h.handleUsers)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleStages dispatches /api/application-statuses/ and its subpaths.
func (h *Handler) handleStages(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2: // /api/application-statuses
		switch r.Method {
		case http.MethodGet:
			h.listStages(w, r)
		case http.MethodPost:
			h.createStage(w, r, actor)
		default:
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 3 && parts[2] == "reorder":
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.reorderStages(w, r, actor)
	case len(parts) == 3:
		switch r.Method {
		case http.MethodPatch:
			h.renameStage(w, r, actor, parts[2])
		case http.MethodDelete:
			h.deleteStage(w, r, actor, parts[2])
		default:
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

// handleApplications dispatches /api/applications/ and /api/applications/{id}/.
func (h *Handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2:
		switch r.Method {
		case http.MethodGet:
			h.listApplications(w, r)
		case http.MethodPost:
			h.createApplication(w, r)
		default:
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 3:
		switch r.Method {
		case http.MethodGet:
			h.getApplication(w, r, parts[2])
		case http.MethodPatch:
			h.updateApplication(w, r, parts[2])
		default:
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	users, err := h.engine.ListUsers(r.Context())
	if err != nil {
		h.serviceError(w, "listUsers", err)
		return
	}
	jsonResults(w, users)
}

// ─── Stage handlers ───────────────────────────────────────────────────────────

func (h *Handler) listStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.registry.ListStages(r.Context())
	if err != nil {
		h.serviceError(w, "listStages", err)
		return
	}
	jsonResults(w, stages)
}

func (h *Handler) createStage(w http.ResponseWriter, r *http.Request, actor Actor) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	// An empty body is valid: the stage-config screen's add button posts
	// placeholders server-side.
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	stage, err := h.registry.AddStage(r.Context(), actor, body.Name, body.Description)
	if err != nil {
		h.serviceError(w, "createStage", err)
		return
	}
	jsonStatus(w, http.StatusCreated, stage)
}

func (h *Handler) renameStage(w http.ResponseWriter, r *http.Request, actor Actor, id string) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	stage, err := h.registry.RenameStage(r.Context(), actor, id, body.Name, body.Description)
	if err != nil {
		h.serviceError(w, "renameStage", err)
		return
	}
	jsonOK(w, stage)
}

func (h *Handler) deleteStage(w http.ResponseWriter, r *http.Request, actor Actor, id string) {
	if err := h.registry.DeleteStage(r.Context(), actor, id); err != nil {
		h.serviceError(w, "deleteStage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reorderStages(w http.ResponseWriter, r *http.Request, actor Actor) {
	var body struct {
		Items []StageOrder `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		jsonError(w, "body must contain items", http.StatusBadRequest)
		return
	}

	stages, err := h.registry.Reorder(r.Context(), actor, body.Items)
	if err != nil {
		h.serviceError(w, "reorderStages", err)
		return
	}
	jsonResults(w, stages)
}

// ─── Application handlers ─────────────────────────────────────────────────────

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.engine.ListApplications(r.Context())
	if err != nil {
		h.serviceError(w, "listApplications", err)
		return
	}
	jsonResults(w, apps)
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	app, err := h.engine.CreateApplication(r.Context(), req)
	if err != nil {
		h.serviceError(w, "createApplication", err)
		return
	}
	jsonStatus(w, http.StatusCreated, app)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request, id string) {
	app, err := h.engine.GetApplication(r.Context(), id)
	if err != nil {
		h.serviceError(w, "getApplication", err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		CurrentStatus  *string `json:"current_status"`
		AssignedUserID *string `json:"assigned_user_id"`
		StatusNotes    string  `json:"status_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	app, err := h.engine.ApplyUpdate(r.Context(), id, ProposedUpdate{
		StatusID:       body.CurrentStatus,
		AssignedUserID: body.AssignedUserID,
		Notes:          body.StatusNotes,
	})
	if err != nil {
		h.serviceError(w, "updateApplication", err)
		return
	}
	jsonOK(w, app)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// actorFrom extracts the gateway-forwarded identity. Writes 401 and returns
// ok=false when the x-user-id header is missing.
func actorFrom(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return Actor{}, false
	}
	return Actor{ID: userID, Role: r.Header.Get("x-user-role")}, true
}

// serviceError maps typed service failures onto HTTP statuses.
func (h *Handler) serviceError(w http.ResponseWriter, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		jsonError(w, "operation conflicts with existing data", http.StatusConflict)
	case errors.Is(err, ErrForbidden):
		jsonError(w, "forbidden", http.StatusForbidden)
	default:
		log.Printf("[pipeline-service] %s error: %v", op, err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

// jsonResults wraps collection responses the way the frontend expects.
func jsonResults(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, map[string]any{"results": v})
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[pipeline-service] encode response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
