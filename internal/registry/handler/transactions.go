package handler

import (
	"net/http"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/httputil"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := transactionID(r)
	if err != nil {
		h.fail(ctx, w, "get_transaction", err)
		return
	}
	t, err := h.registry.Transaction(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get_transaction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleProcessRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := transactionID(r)
	if err != nil {
		h.fail(ctx, w, "process_request", err)
		return
	}
	req, ok := decode[DecisionRequest](h, w, r)
	if !ok {
		return
	}
	t, err := h.registry.ProcessRequest(ctx, requestcontext.Caller(ctx), id, *req.Approve)
	if err != nil {
		h.fail(ctx, w, "process_request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleCompletePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := transactionID(r)
	if err != nil {
		h.fail(ctx, w, "complete_purchase", err)
		return
	}
	t, err := h.registry.CompletePurchase(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		h.fail(ctx, w, "complete_purchase", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleEscrowTotals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	totals, err := h.registry.EscrowTotals(ctx)
	if err != nil {
		h.fail(ctx, w, "escrow_totals", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse{
		Collected: totals.Collected,
		Released:  totals.Released,
		Refunded:  totals.Refunded,
		Held:      totals.Held,
		Balanced:  totals.Balanced(),
	})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := address(r)
	if err != nil {
		h.fail(ctx, w, "balance", err)
		return
	}
	balance, err := h.registry.Balance(ctx, identity)
	if err != nil {
		h.fail(ctx, w, "balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{Identity: identity, Balance: balance})
}
