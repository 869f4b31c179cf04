package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bluecarbon-registry/gateway/internal/httputil"
	"github.com/bluecarbon-registry/gateway/internal/store"
	"github.com/bluecarbon-registry/gateway/internal/validate"
)

// issueCreditsRequest is the body of POST /credits/issue.
type issueCreditsRequest struct {
	ToAddress string `json:"to_address"`
	ProjectID string `json:"project_id"`
	Amount    int64  `json:"amount"`
	ProofCID  string `json:"proof_cid"`
}

// retireCreditsRequest is the body of POST /credits/retire.
type retireCreditsRequest struct {
	ProjectID string `json:"project_id"`
	Amount    int64  `json:"amount"`
}

func (h *Handler) issueCredits(w http.ResponseWriter, r *http.Request) {
	var req issueCreditsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	toAddress, err := validate.Address(req.ToAddress)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("to_address: %v", err))
		return
	}
	if err := validate.Amount(req.Amount); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	projectID, err := validate.ProjectID(req.ProjectID)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	project, err := h.repo.GetProject(r.Context(), projectID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	if project == nil {
		httputil.NotFound(w, fmt.Sprintf("Project '%s' not found", projectID))
		return
	}

	if !h.requireLedger(w) {
		return
	}

	tx, err := h.ledger.IssueCredits(r.Context(), toAddress, projectID, req.Amount, req.ProofCID, h.cfg.MinterPrivateKey)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	if err := h.repo.ApplyBalanceChange(r.Context(), projectID, req.Amount, store.OpIssue); err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	entry := &store.LogEntry{
		Type:   store.LogCreditIssuance,
		TxHash: tx.TxHash,
		Details: map[string]any{
			"to_address": toAddress,
			"project_id": projectID,
			"amount":     req.Amount,
			"proof_cid":  req.ProofCID,
			"issued_by":  h.cfg.MinterID,
		},
	}
	if err := h.repo.InsertLog(r.Context(), entry); err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, txResponse{
		Success: true,
		Tx:      tx,
		Message: fmt.Sprintf("%d credits issued successfully!", req.Amount),
	})
}

func (h *Handler) retireCredits(w http.ResponseWriter, r *http.Request) {
	var req retireCreditsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := validate.Amount(req.Amount); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	projectID, err := validate.ProjectID(req.ProjectID)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	project, err := h.repo.GetProject(r.Context(), projectID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	if project == nil {
		httputil.NotFound(w, fmt.Sprintf("Project '%s' not found", projectID))
		return
	}
	if project.Balances.Circulating < req.Amount {
		httputil.BadRequest(w, fmt.Sprintf("Insufficient credits. Available: %d", project.Balances.Circulating))
		return
	}

	if !h.requireLedger(w) {
		return
	}

	tokenID, err := h.ledger.ProjectTokenID(r.Context(), projectID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	tx, err := h.ledger.RetireCredits(r.Context(), tokenID, req.Amount, h.cfg.UserPrivateKey)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	if err := h.repo.ApplyBalanceChange(r.Context(), projectID, req.Amount, store.OpRetire); err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	entry := &store.LogEntry{
		Type:   store.LogCreditRetirement,
		TxHash: tx.TxHash,
		Details: map[string]any{
			"project_id": projectID,
			"amount":     req.Amount,
		},
	}
	if err := h.repo.InsertLog(r.Context(), entry); err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, txResponse{
		Success: true,
		Tx:      tx,
		Message: fmt.Sprintf("%d credits retired successfully!", req.Amount),
	})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	address, err := validate.Address(vars["address"])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	projectID := vars["project_id"]

	if !h.requireLedger(w) {
		return
	}

	tokenID, err := h.ledger.ProjectTokenID(r.Context(), projectID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	balance, err := h.ledger.BalanceOf(r.Context(), address, tokenID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"address":    address,
		"project_id": projectID,
		"token_id":   tokenID,
		"balance":    balance,
	})
}
