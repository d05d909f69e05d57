package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/core/service"
	"github.com/rl1809/warehouse/internal/port"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	inventory *service.InventoryService
	guard     port.RequestGuard
	log       logrus.FieldLogger
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewHTTPHandler serves the inventory API. guard may be nil, in which case
// request ids are not checked.
func NewHTTPHandler(inventory *service.InventoryService, guard port.RequestGuard, logger logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, guard: guard, log: logger}
}

func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/receipts", h.Receive).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/write-offs", h.WriteOff).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/adjustments", h.Adjust).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/products/{sku}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/products/{sku}/operations", h.ListProductOperations).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/operations", h.ListOperations).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/inventory/value", h.InventoryValue).Methods(http.MethodGet)

	return h.logMiddleware(r)
}

func (h *HTTPHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.execute(r.Context(), w, req.RequestID, http.StatusCreated, func() domain.Result {
		return h.inventory.Receive(r.Context(), req.toService())
	})
}

func (h *HTTPHandler) WriteOff(w http.ResponseWriter, r *http.Request) {
	var req WriteOffRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.execute(r.Context(), w, req.RequestID, http.StatusOK, func() domain.Result {
		return h.inventory.WriteOff(r.Context(), req.toService())
	})
}

func (h *HTTPHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.execute(r.Context(), w, req.RequestID, http.StatusOK, func() domain.Result {
		return h.inventory.InventoryAdjustment(r.Context(), req.toService())
	})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newProductsResponse(h.inventory.ListAllProducts()))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	sku := mux.Vars(r)["sku"]
	product, ok := h.inventory.GetProduct(sku)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Message: "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *HTTPHandler) ListProductOperations(w http.ResponseWriter, r *http.Request) {
	sku := mux.Vars(r)["sku"]
	writeJSON(w, http.StatusOK, newOperationsResponse(h.inventory.ListOperationsBySKU(sku)))
}

func (h *HTTPHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newOperationsResponse(h.inventory.ListAllOperations()))
}

func (h *HTTPHandler) InventoryValue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InventoryValueResponse{
		TotalValue: h.inventory.TotalInventoryValue().StringFixed(2),
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode only checks that the body is well-formed JSON. Field rules are
// enforced by the inventory service.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Success: false,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func (h *HTTPHandler) execute(ctx context.Context, w http.ResponseWriter, requestID string, okStatus int, op func() domain.Result) {
	result, duplicate, err := guarded(ctx, h.guard, h.log, requestID, op)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Message: "internal error"})
		return
	}
	if duplicate {
		writeJSON(w, http.StatusConflict, duplicateResponse())
		return
	}

	status := okStatus
	if !result.Success {
		status = statusForKind(result.Kind)
	}
	writeJSON(w, status, newResultResponse(result))
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInsufficientStock:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"remoteAddr": r.RemoteAddr,
		}).Debug("got a new request")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
