package handler

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/core/service"
	"github.com/rl1809/warehouse/internal/port"
)

const InventoryServiceName = "warehouse.v1.Inventory"

// JSONCodec carries the handler DTOs as JSON instead of protobuf. The
// server must be created with grpc.ForceServerCodec(JSONCodec{}) and clients
// with grpc.ForceCodec(JSONCodec{}).
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                               { return "json" }

type InventoryServer interface {
	Receive(ctx context.Context, req *ReceiveRequest) (*ResultResponse, error)
	WriteOff(ctx context.Context, req *WriteOffRequest) (*ResultResponse, error)
	AdjustInventory(ctx context.Context, req *AdjustmentRequest) (*ResultResponse, error)
	ListProducts(ctx context.Context, req *Empty) (*ProductsResponse, error)
	ListOperations(ctx context.Context, req *OperationsFilter) (*OperationsResponse, error)
	GetInventoryValue(ctx context.Context, req *Empty) (*InventoryValueResponse, error)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Receive", InventoryServer.Receive),
		unaryMethod("WriteOff", InventoryServer.WriteOff),
		unaryMethod("AdjustInventory", InventoryServer.AdjustInventory),
		unaryMethod("ListProducts", InventoryServer.ListProducts),
		unaryMethod("ListOperations", InventoryServer.ListOperations),
		unaryMethod("GetInventoryValue", InventoryServer.GetInventoryValue),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

func unaryMethod[Req, Resp any](name string, call func(InventoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + InventoryServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InventoryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(InventoryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type GRPCHandler struct {
	inventory *service.InventoryService
	guard     port.RequestGuard
	log       logrus.FieldLogger
}

func NewGRPCHandler(inventory *service.InventoryService, guard port.RequestGuard, logger logrus.FieldLogger) *GRPCHandler {
	return &GRPCHandler{inventory: inventory, guard: guard, log: logger}
}

func (h *GRPCHandler) Receive(ctx context.Context, req *ReceiveRequest) (*ResultResponse, error) {
	return h.execute(ctx, req.RequestID, func() domain.Result {
		return h.inventory.Receive(ctx, req.toService())
	})
}

func (h *GRPCHandler) WriteOff(ctx context.Context, req *WriteOffRequest) (*ResultResponse, error) {
	return h.execute(ctx, req.RequestID, func() domain.Result {
		return h.inventory.WriteOff(ctx, req.toService())
	})
}

func (h *GRPCHandler) AdjustInventory(ctx context.Context, req *AdjustmentRequest) (*ResultResponse, error) {
	return h.execute(ctx, req.RequestID, func() domain.Result {
		return h.inventory.InventoryAdjustment(ctx, req.toService())
	})
}

func (h *GRPCHandler) ListProducts(ctx context.Context, _ *Empty) (*ProductsResponse, error) {
	resp := newProductsResponse(h.inventory.ListAllProducts())
	return &resp, nil
}

func (h *GRPCHandler) ListOperations(ctx context.Context, req *OperationsFilter) (*OperationsResponse, error) {
	var operations []domain.OperationRecord
	if req.SKU != "" {
		operations = h.inventory.ListOperationsBySKU(req.SKU)
	} else {
		operations = h.inventory.ListAllOperations()
	}
	resp := newOperationsResponse(operations)
	return &resp, nil
}

func (h *GRPCHandler) GetInventoryValue(ctx context.Context, _ *Empty) (*InventoryValueResponse, error) {
	return &InventoryValueResponse{
		TotalValue: h.inventory.TotalInventoryValue().StringFixed(2),
	}, nil
}

// execute returns business failures inside the response; only a broken
// request guard is a transport error.
func (h *GRPCHandler) execute(ctx context.Context, requestID string, op func() domain.Result) (*ResultResponse, error) {
	result, duplicate, err := guarded(ctx, h.guard, h.log, requestID, op)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	if duplicate {
		resp := duplicateResponse()
		return &resp, nil
	}
	resp := newResultResponse(result)
	return &resp, nil
}
