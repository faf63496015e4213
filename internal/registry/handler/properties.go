package handler

import (
	"net/http"

	propertymodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	txmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/httputil"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

func (h *Handler) handleRegisterProperty(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[RegisterPropertyRequest](h, w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	p, err := h.registry.RegisterProperty(ctx, requestcontext.Caller(ctx), req.registration)
	if err != nil {
		h.fail(ctx, w, "register_property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := r.URL.Query().Get("owner")
	if raw == "" {
		h.fail(ctx, w, "list_by_owner", dErrors.New(dErrors.CodeInvalidInput, "owner query parameter is required"))
		return
	}
	owner, err := domain.ParseAddress(raw)
	if err != nil {
		h.fail(ctx, w, "list_by_owner", err)
		return
	}
	props, err := h.registry.PropertiesByOwner(ctx, owner)
	if err != nil {
		h.fail(ctx, w, "list_by_owner", err)
		return
	}
	if props == nil {
		props = []*propertymodels.Property{}
	}
	httputil.WriteJSON(w, http.StatusOK, props)
}

func (h *Handler) handlePropertyCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.registry.PropertyCount(ctx)
	if err != nil {
		h.fail(ctx, w, "property_count", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := propertyID(r)
	if err != nil {
		h.fail(ctx, w, "get_property", err)
		return
	}
	p, err := h.registry.Property(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get_property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleApproveProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := propertyID(r)
	if err != nil {
		h.fail(ctx, w, "approve_property", err)
		return
	}
	req, ok := decode[DecisionRequest](h, w, r)
	if !ok {
		return
	}
	p, err := h.registry.ApproveProperty(ctx, requestcontext.Caller(ctx), id, *req.Approve)
	if err != nil {
		h.fail(ctx, w, "approve_property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleListForSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := propertyID(r)
	if err != nil {
		h.fail(ctx, w, "list_for_sale", err)
		return
	}
	req, ok := decode[ListingRequest](h, w, r)
	if !ok {
		return
	}
	p, err := h.registry.ListForSale(ctx, requestcontext.Caller(ctx), id, req.Price)
	if err != nil {
		h.fail(ctx, w, "list_for_sale", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleRemoveFromSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := propertyID(r)
	if err != nil {
		h.fail(ctx, w, "remove_from_sale", err)
		return
	}
	p, err := h.registry.RemoveFromSale(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		h.fail(ctx, w, "remove_from_sale", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := propertyID(r)
	if err != nil {
		h.fail(ctx, w, "update_documents", err)
		return
	}
	req, ok := decode[DocumentsRequest](h, w, r)
	if !ok {
		return
	}
	p, err := h.registry.UpdatePropertyDocuments(ctx, requestcontext.Caller(ctx), id, req.DocumentRef)
	if err != nil {
		h.fail(ctx, w, "update_documents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleRequestPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := propertyID(r)
	if err != nil {
		h.fail(ctx, w, "request_purchase", err)
		return
	}
	req, ok := decode[PurchaseRequest](h, w, r)
	if !ok {
		return
	}
	t, err := h.registry.RequestPurchase(ctx, requestcontext.Caller(ctx), txmodels.Offer{
		PropertyID:  id,
		Price:       req.OfferedPrice,
		Escrow:      req.Escrow,
		DocumentRef: req.DocumentRef,
	})
	if err != nil {
		h.fail(ctx, w, "request_purchase", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := propertyID(r)
	if err != nil {
		h.fail(ctx, w, "list_transactions", err)
		return
	}

	var txs []*txmodels.Transaction
	switch status := r.URL.Query().Get("status"); status {
	case "":
		txs, err = h.registry.TransactionsByProperty(ctx, id)
	case string(txmodels.StatusPending):
		txs, err = h.registry.PendingTransactionsByProperty(ctx, id)
	default:
		err = dErrors.New(dErrors.CodeInvalidInput, "unsupported status filter: "+status)
	}
	if err != nil {
		h.fail(ctx, w, "list_transactions", err)
		return
	}
	if txs == nil {
		txs = []*txmodels.Transaction{}
	}
	httputil.WriteJSON(w, http.StatusOK, txs)
}
