package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/httputil"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[RegisterUserRequest](h, w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	entry, err := h.registry.RegisterUser(ctx, requestcontext.Caller(ctx), req.identity, req.role)
	if err != nil {
		h.fail(ctx, w, "register_user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleAssignTerritorial(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[AssignTerritorialRequest](h, w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	entry, err := h.registry.AssignTerritorial(ctx, requestcontext.Caller(ctx), req.identity, req.Villages, req.role)
	if err != nil {
		h.fail(ctx, w, "assign_territorial", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := address(r)
	if err != nil {
		h.fail(ctx, w, "get_user", err)
		return
	}
	entry, err := h.registry.User(ctx, identity)
	if err != nil {
		h.fail(ctx, w, "get_user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleHasCapability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := address(r)
	if err != nil {
		h.fail(ctx, w, "has_capability", err)
		return
	}
	capability, err := accessmodels.ParseCapability(chi.URLParam(r, "capability"))
	if err != nil {
		h.fail(ctx, w, "has_capability", err)
		return
	}
	granted, err := h.registry.HasCapability(ctx, identity, capability)
	if err != nil {
		h.fail(ctx, w, "has_capability", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, capabilityResponse{Identity: identity, Capability: capability, Granted: granted})
}

func (h *Handler) handleGetPaused(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paused, err := h.registry.Paused(ctx)
	if err != nil {
		h.fail(ctx, w, "paused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pausedResponse{Paused: paused})
}

func (h *Handler) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[SetPausedRequest](h, w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.registry.SetPaused(ctx, requestcontext.Caller(ctx), *req.Paused); err != nil {
		h.fail(ctx, w, "set_paused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pausedResponse{Paused: *req.Paused})
}
