package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bluecarbon-registry/gateway/internal/chain"
	"github.com/bluecarbon-registry/gateway/internal/httputil"
	"github.com/bluecarbon-registry/gateway/internal/validate"
)

// updateRegistryRequest is the body of POST /registry/update.
type updateRegistryRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *Handler) registryEntry(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if !h.requireLedger(w) {
		return
	}

	address, err := h.ledger.RegistryEntry(r.Context(), name)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	if chain.IsZeroAddress(address) {
		httputil.NotFound(w, fmt.Sprintf("Registry entry '%s' not found", name))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"address": address,
	})
}

func (h *Handler) updateRegistry(w http.ResponseWriter, r *http.Request) {
	var req updateRegistryRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if req.Name == "" {
		httputil.BadRequest(w, "name cannot be empty")
		return
	}
	address, err := validate.Address(req.Address)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("address: %v", err))
		return
	}

	if !h.requireLedger(w) {
		return
	}

	tx, err := h.ledger.UpdateRegistry(r.Context(), req.Name, address, h.cfg.AdminPrivateKey)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, txResponse{
		Success: true,
		Tx:      tx,
		Message: fmt.Sprintf("Registry entry '%s' updated successfully!", req.Name),
	})
}
