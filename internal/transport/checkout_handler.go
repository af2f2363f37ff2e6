package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierpay/internal/purchase/catalog"
	"github.com/goodnatureofminers/tierpay/internal/purchase/checkout"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// CheckoutHandler serves the tier catalog, purchases and purchase history.
type CheckoutHandler struct {
	catalog  Catalog
	checkout Checkout
	history  History
	logger   *zap.Logger
}

// NewCheckoutHandler returns a CheckoutHandler. history may be nil when no journal is configured.
func NewCheckoutHandler(catalog Catalog, checkout Checkout, history History, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		catalog:  catalog,
		checkout: checkout,
		history:  history,
		logger:   logger,
	}
}

// Register binds the handler routes on mux.
func (h *CheckoutHandler) Register(mux *gwruntime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler gwruntime.HandlerFunc
	}{
		{method: http.MethodGet, pattern: "/v1/tiers", handler: h.listTiers},
		{method: http.MethodPost, pattern: "/v1/tiers/{id}/purchase", handler: h.purchase},
		{method: http.MethodGet, pattern: "/v1/purchases", handler: h.listPurchases},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return nil
}

type tierResponse struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	Currency        string `json:"currency"`
	Description     string `json:"description"`
	Requests        int    `json:"requests"`
	PrioritySupport bool   `json:"priority_support"`
}

type purchaseResponse struct {
	AttemptID     string `json:"attempt_id"`
	Tier          int    `json:"tier"`
	Status        string `json:"status"`
	Signature     string `json:"signature,omitempty"`
	EscrowAddress string `json:"escrow_address,omitempty"`
	Category      string `json:"category,omitempty"`
	Message       string `json:"message,omitempty"`
}

type attemptResponse struct {
	AttemptID          string    `json:"attempt_id"`
	Tier               int       `json:"tier"`
	Status             string    `json:"status"`
	Stage              string    `json:"stage"`
	Category           string    `json:"category,omitempty"`
	ProvisionSignature string    `json:"provision_signature,omitempty"`
	EscrowSignature    string    `json:"escrow_signature,omitempty"`
	EscrowAddress      string    `json:"escrow_address,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *CheckoutHandler) listTiers(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	tiers := h.catalog.Tiers()
	out := make([]tierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, tierResponse{
			ID:              int(t.ID),
			Name:            t.Name,
			Price:           t.Price.String(),
			Currency:        t.Currency,
			Description:     t.Description,
			Requests:        t.Requests,
			PrioritySupport: t.PrioritySupport,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *CheckoutHandler) purchase(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := strconv.Atoi(params["id"])
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tier id must be an integer"})
		return
	}

	res, err := h.checkout.Purchase(r.Context(), model.TierID(id))
	switch {
	case errors.Is(err, catalog.ErrUnknownTier):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, checkout.ErrInFlight):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		h.logger.Error("purchase failed to start", zap.Int("tier", id), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	h.writeJSON(w, purchaseStatus(res), toPurchaseResponse(res))
}

func (h *CheckoutHandler) listPurchases(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if h.history == nil {
		h.writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "purchase journal is disabled"})
		return
	}
	buyer, ok := h.checkout.Buyer()
	if !ok {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: model.NotConnected.Message()})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.RecentAttempts(r.Context(), buyer, limit)
	if err != nil {
		h.logger.Error("recent attempts", zap.String("buyer", buyer.String()), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	out := make([]attemptResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, attemptResponse{
			AttemptID:          rec.AttemptID.String(),
			Tier:               int(rec.Tier),
			Status:             string(rec.Status),
			Stage:              string(rec.Stage),
			Category:           string(rec.Category),
			ProvisionSignature: rec.ProvisionSignature,
			EscrowSignature:    rec.EscrowSignature,
			EscrowAddress:      rec.EscrowAddress,
			StartedAt:          rec.StartedAt,
			FinishedAt:         rec.FinishedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *CheckoutHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}

func toPurchaseResponse(res model.PurchaseResult) purchaseResponse {
	out := purchaseResponse{
		AttemptID: res.AttemptID.String(),
		Tier:      int(res.Tier),
		Status:    string(res.Status),
		Category:  string(res.Category),
		Message:   res.Message,
	}
	if res.Succeeded() {
		out.Signature = res.Signature.String()
		out.EscrowAddress = res.EscrowAddress.String()
	}
	return out
}

func purchaseStatus(res model.PurchaseResult) int {
	if res.Succeeded() {
		return http.StatusOK
	}
	switch res.Category {
	case model.NotConnected:
		return http.StatusServiceUnavailable
	case model.ConfirmationTimeout:
		return http.StatusGatewayTimeout
	case model.LookupFailure:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}
