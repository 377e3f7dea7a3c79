package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/ibdash/internal/execution"
	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/pkg/logger"
)

// OrderHandler handles order construction, placement and maintenance
// ⭐ SSOT: order API handlers live in this struct only
type OrderHandler struct {
	builder  *order.Builder
	placer   *execution.Placer
	channel  execution.Channel
	book     execution.OrderBook
	modifier *order.Modifier
	logger   *logger.Logger
}

// NewOrderHandler creates a new order handler. book backs both listing and
// modification so dry-run and live sessions behave the same.
func NewOrderHandler(builder *order.Builder, placer *execution.Placer, channel execution.Channel, book execution.OrderBook, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		builder:  builder,
		placer:   placer,
		channel:  channel,
		book:     book,
		modifier: order.NewModifier(book, builder.Policy()),
		logger:   log,
	}
}

// OrderRequest is an order intent addressed by dashboard symbol, e.g.
// {"symbol":"EURUSD","direction":"BUY","size":1,"order_type":"LMT","limit_price":1.2,"tif":"DAY"}
type OrderRequest struct {
	Symbol string `json:"symbol"`
	order.Intent
}

func (req OrderRequest) instrument() (order.Instrument, bool) {
	if req.Symbol != "" {
		inst := gateway.InstrumentFor(req.Symbol)
		inst.ConID = req.Instrument.ConID
		return inst, true
	}
	return req.Instrument, req.Instrument.Symbol != ""
}

// PreviewResponse shows what would be sent without sending it
type PreviewResponse struct {
	Symbol string                 `json:"symbol"`
	Orders order.Group            `json:"orders"`
	Wire   []gateway.OrderRequest `json:"wire"`
}

// ListOrders returns the session's working and recent orders
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.book.LiveOrders(r.Context())
	if err != nil {
		respondFailure(w, h.logger, "list orders", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// Preview validates and builds an intent without submitting it
// POST /api/orders/preview
func (h *OrderHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	inst, ok := req.instrument()
	if !ok {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	req.Intent.Instrument = inst
	group, err := h.builder.Build(req.Intent)
	if err != nil {
		respondFailure(w, h.logger, "preview order", err)
		return
	}

	wire := make([]gateway.OrderRequest, len(group))
	for i, o := range group {
		wire[i] = gateway.ToWire("", inst, o)
	}

	respondJSON(w, http.StatusOK, PreviewResponse{
		Symbol: gateway.PairSymbol(inst),
		Orders: group,
		Wire:   wire,
	})
}

// PlaceOrder places an order, or a bracket when the intent carries one
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	inst, ok := req.instrument()
	if !ok {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	placement, err := h.placer.Place(r.Context(), inst, req.Intent)
	if err != nil {
		respondFailure(w, h.logger, "place order", err)
		return
	}

	respondJSON(w, http.StatusCreated, placement)
}

// ModifyOrder applies a partial patch to a live order
// PATCH /api/orders/{id}
func (h *OrderHandler) ModifyOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var changes order.Changes
	if err := decodeBody(r, &changes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.modifier.Modify(r.Context(), id, changes); err != nil {
		respondFailure(w, h.logger, "modify order", err)
		return
	}

	h.logger.WithField("order_id", id).Info("Order modified")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": id,
		"modified": !changes.Empty(),
	})
}

// CancelOrder cancels a live order
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.channel.Cancel(r.Context(), id); err != nil {
		respondFailure(w, h.logger, "cancel order", err)
		return
	}

	h.logger.WithField("order_id", id).Info("Order cancelled")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":  id,
		"cancelled": true,
	})
}
