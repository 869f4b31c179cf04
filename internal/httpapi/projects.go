package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/bluecarbon-registry/gateway/internal/httputil"
	"github.com/bluecarbon-registry/gateway/internal/store"
	"github.com/bluecarbon-registry/gateway/internal/validate"
)

// registerProjectRequest is the body of POST /projects/register.
type registerProjectRequest struct {
	ProjectID   string `json:"project_id"`
	MetadataCID string `json:"metadata_cid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProjectType string `json:"project_type"`
	Location    string `json:"location"`
	OwnerWallet string `json:"owner_wallet,omitempty"`
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	limit, err := validate.PageParam("limit", r.URL.Query().Get("limit"), 10)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	skip, err := validate.PageParam("skip", r.URL.Query().Get("skip"), 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	projects, err := h.repo.ListProjects(r.Context(), limit, skip)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]

	project, err := h.repo.GetProject(r.Context(), projectID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	if project == nil {
		httputil.NotFound(w, fmt.Sprintf("Project '%s' not found", projectID))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) registerProject(w http.ResponseWriter, r *http.Request) {
	var req registerProjectRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	projectID, err := validate.ProjectID(req.ProjectID)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	ownerWallet := ""
	if req.OwnerWallet != "" {
		if _, err := validate.Address(req.OwnerWallet); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("owner_wallet: %v", err))
			return
		}
		ownerWallet = strings.ToLower(req.OwnerWallet)
	}

	// Duplicate check happens before any ledger call.
	existing, err := h.repo.GetProject(r.Context(), projectID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	if existing != nil {
		httputil.Conflict(w, fmt.Sprintf("Project '%s' already exists", projectID))
		return
	}

	if !h.requireLedger(w) {
		return
	}

	tx, err := h.ledger.RegisterProject(r.Context(), projectID, req.MetadataCID, h.cfg.AdminPrivateKey)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	project := &store.Project{
		ProjectID:   projectID,
		Name:        req.Name,
		Description: req.Description,
		ProjectType: req.ProjectType,
		Location:    req.Location,
		OwnerWallet: ownerWallet,
		Status:      "active",
		Balances:    store.Balances{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repo.InsertProject(r.Context(), project); err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	entry := &store.LogEntry{
		Type:   store.LogProjectRegistration,
		TxHash: tx.TxHash,
		Details: map[string]any{
			"project_id":   projectID,
			"name":         req.Name,
			"project_type": req.ProjectType,
			"location":     req.Location,
			"metadata_cid": req.MetadataCID,
		},
	}
	if err := h.repo.InsertLog(r.Context(), entry); err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, txResponse{
		Success: true,
		Tx:      tx,
		Message: fmt.Sprintf("Project '%s' registered successfully!", req.Name),
	})
}

func (h *Handler) projectHistory(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]

	limit, err := validate.PageParam("limit", r.URL.Query().Get("limit"), 50)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	entries, err := h.repo.ProjectHistory(r.Context(), projectID, limit)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
