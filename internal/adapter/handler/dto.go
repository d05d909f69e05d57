package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/core/service"
)

const KindDuplicateRequest domain.ErrorKind = "duplicate_request"

type ReceiveRequest struct {
	RequestID    string          `json:"request_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Supplier     string          `json:"supplier"`
	DeliveryDate time.Time       `json:"delivery_date"`
}

func (r ReceiveRequest) toService() service.ReceiveRequest {
	return service.ReceiveRequest{
		SKU:          r.SKU,
		Name:         r.Name,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		Supplier:     r.Supplier,
		DeliveryDate: r.DeliveryDate,
	}
}

type WriteOffRequest struct {
	RequestID    string    `json:"request_id"`
	SKU          string    `json:"sku"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
	WriteOffDate time.Time `json:"write_off_date"`
}

func (r WriteOffRequest) toService() service.WriteOffRequest {
	return service.WriteOffRequest{
		SKU:          r.SKU,
		Quantity:     r.Quantity,
		Reason:       r.Reason,
		WriteOffDate: r.WriteOffDate,
	}
}

type AdjustmentRequest struct {
	RequestID      string    `json:"request_id"`
	SKU            string    `json:"sku"`
	ActualQuantity int       `json:"actual_quantity"`
	Reason         string    `json:"reason"`
	AdjustmentDate time.Time `json:"adjustment_date"`
}

func (r AdjustmentRequest) toService() service.AdjustmentRequest {
	return service.AdjustmentRequest{
		SKU:            r.SKU,
		ActualQuantity: r.ActualQuantity,
		Reason:         r.Reason,
		AdjustmentDate: r.AdjustmentDate,
	}
}

type ResultResponse struct {
	domain.Result
	Operation *OperationResponse `json:"operation,omitempty"`
}

type ProductResponse struct {
	SKU              string    `json:"sku"`
	Name             string    `json:"name"`
	Quantity         int       `json:"quantity"`
	UnitPrice        string    `json:"unit_price"`
	Supplier         string    `json:"supplier"`
	LastDeliveryDate time.Time `json:"last_delivery_date"`
	Value            string    `json:"value"`
}

type OperationResponse struct {
	ID            string    `json:"id"`
	Sequence      int64     `json:"sequence"`
	SKU           string    `json:"sku"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	Difference    int       `json:"difference"`
	Balance       int       `json:"balance"`
	UnitPrice     string    `json:"unit_price"`
	Reason        string    `json:"reason"`
	OperationDate time.Time `json:"operation_date"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

type OperationsResponse struct {
	Operations []OperationResponse `json:"operations"`
}

type InventoryValueResponse struct {
	TotalValue string `json:"total_value"`
}

// Empty is the request body of parameterless RPCs.
type Empty struct{}

type OperationsFilter struct {
	SKU string `json:"sku"`
}

func newResultResponse(result domain.Result) ResultResponse {
	resp := ResultResponse{Result: result}
	if result.Record != nil {
		op := newOperationResponse(*result.Record)
		resp.Operation = &op
	}
	return resp
}

func duplicateResponse() ResultResponse {
	return ResultResponse{Result: domain.Result{
		Success:        false,
		Kind:           KindDuplicateRequest,
		Message:        "duplicate request",
		PostConditions: []domain.PostCondition{},
	}}
}

func newProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		SKU:              p.SKU,
		Name:             p.Name,
		Quantity:         p.Quantity,
		UnitPrice:        p.UnitPrice.StringFixed(2),
		Supplier:         p.Supplier,
		LastDeliveryDate: p.LastDeliveryDate,
		Value:            p.Value().StringFixed(2),
	}
}

func newProductsResponse(products []domain.Product) ProductsResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}
	return ProductsResponse{Products: out}
}

func newOperationResponse(o domain.OperationRecord) OperationResponse {
	return OperationResponse{
		ID:            o.ID,
		Sequence:      o.Sequence,
		SKU:           o.SKU,
		Type:          string(o.Type),
		Quantity:      o.Quantity,
		Difference:    o.Difference,
		Balance:       o.Balance,
		UnitPrice:     o.UnitPrice.StringFixed(2),
		Reason:        o.Reason,
		OperationDate: o.OperationDate,
		RecordedAt:    o.RecordedAt,
	}
}

func newOperationsResponse(operations []domain.OperationRecord) OperationsResponse {
	out := make([]OperationResponse, 0, len(operations))
	for _, o := range operations {
		out = append(out, newOperationResponse(o))
	}
	return OperationsResponse{Operations: out}
}
