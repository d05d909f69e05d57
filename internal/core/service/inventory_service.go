package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/warehouse/internal/core/catalog"
	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/core/ledger"
	"github.com/rl1809/warehouse/internal/port"
)

type ReceiveRequest struct {
	SKU          string
	Name         string
	Quantity     int
	UnitPrice    decimal.Decimal
	Supplier     string
	DeliveryDate time.Time
}

type WriteOffRequest struct {
	SKU          string
	Quantity     int
	Reason       string
	WriteOffDate time.Time
}

type AdjustmentRequest struct {
	SKU            string
	ActualQuantity int
	Reason         string
	AdjustmentDate time.Time
}

type Option func(*InventoryService)

func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) { s.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *InventoryService) { s.log = logger }
}

func WithPublisher(publisher port.OperationPublisher) Option {
	return func(s *InventoryService) { s.publisher = publisher }
}

// InventoryService is the only writer of the catalog and the ledger. One
// mutex covers both so that each catalog change and its ledger entry are
// applied together.
type InventoryService struct {
	mu        sync.Mutex
	// publishMu is taken before mu is released, so records reach the
	// publisher in ledger order while queries and the next operation run.
	publishMu sync.Mutex
	catalog   *catalog.Catalog
	ledger    *ledger.Ledger
	publisher port.OperationPublisher
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewInventoryService(c *catalog.Catalog, l *ledger.Ledger, opts ...Option) *InventoryService {
	s := &InventoryService{
		catalog: c,
		ledger:  l,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InventoryService) Receive(ctx context.Context, req ReceiveRequest) domain.Result {
	s.mu.Lock()
	result := s.receive(ctx, req)
	s.handOff()

	s.finish(ctx, domain.OperationReceive, req.SKU, result)
	s.publishMu.Unlock()
	return result
}

func (s *InventoryService) WriteOff(ctx context.Context, req WriteOffRequest) domain.Result {
	s.mu.Lock()
	result := s.writeOff(ctx, req)
	s.handOff()

	s.finish(ctx, domain.OperationWriteOff, req.SKU, result)
	s.publishMu.Unlock()
	return result
}

func (s *InventoryService) InventoryAdjustment(ctx context.Context, req AdjustmentRequest) domain.Result {
	s.mu.Lock()
	result := s.adjust(ctx, req)
	s.handOff()

	s.finish(ctx, domain.OperationAdjustment, req.SKU, result)
	s.publishMu.Unlock()
	return result
}

func (s *InventoryService) receive(ctx context.Context, req ReceiveRequest) domain.Result {
	if err := s.validateReceive(req); err != nil {
		return domain.Failure(err)
	}

	product := domain.Product{
		SKU:              req.SKU,
		Name:             req.Name,
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		Supplier:         req.Supplier,
		LastDeliveryDate: req.DeliveryDate,
	}
	persistErr, err := splitPersist(s.catalog.Add(ctx, product))
	if err != nil {
		return domain.Failure(err)
	}

	record, appendErr := s.ledger.Append(ctx, domain.OperationRecord{
		ID:            uuid.NewString(),
		SKU:           req.SKU,
		Type:          domain.OperationReceive,
		Quantity:      req.Quantity,
		Difference:    req.Quantity,
		Balance:       req.Quantity,
		UnitPrice:     req.UnitPrice,
		Reason:        fmt.Sprintf("received from supplier %s", req.Supplier),
		OperationDate: req.DeliveryDate,
		RecordedAt:    s.now(),
	})
	persistErr = firstErr(persistErr, appendErr)

	stored, found := s.catalog.Get(req.SKU)
	conditions := []domain.PostCondition{
		{
			Description: "product added to catalog",
			Satisfied:   found,
			Details:     foundDetails(found, req.SKU),
		},
		{
			Description: "quantity set",
			Satisfied:   found && stored.Quantity == req.Quantity,
			Details:     fmt.Sprintf("expected %d, actual %d", req.Quantity, stored.Quantity),
		},
		{
			Description: "unit price set",
			Satisfied:   found && stored.UnitPrice.Equal(req.UnitPrice),
			Details:     fmt.Sprintf("expected %s, actual %s", req.UnitPrice, stored.UnitPrice),
		},
		{
			Description: "receive recorded in ledger",
			Satisfied:   s.hasRecord(record),
			Details:     fmt.Sprintf("operation %s", record.ID),
		},
		{
			Description: "total inventory value recalculated",
			Satisfied:   true,
			Details:     fmt.Sprintf("total value %s", s.totalValue().StringFixed(2)),
		},
		persistCondition(persistErr),
	}

	return s.success("goods received", record, conditions, persistErr)
}

func (s *InventoryService) writeOff(ctx context.Context, req WriteOffRequest) domain.Result {
	product, err := s.validateWriteOff(req)
	if err != nil {
		return domain.Failure(err)
	}

	oldQuantity := product.Quantity
	oldValue := s.totalValue()

	product.Quantity -= req.Quantity
	persistErr, err := splitPersist(s.catalog.Update(ctx, product))
	if err != nil {
		return domain.Failure(err)
	}

	record, appendErr := s.ledger.Append(ctx, domain.OperationRecord{
		ID:            uuid.NewString(),
		SKU:           req.SKU,
		Type:          domain.OperationWriteOff,
		Quantity:      req.Quantity,
		Difference:    -req.Quantity,
		Balance:       product.Quantity,
		UnitPrice:     product.UnitPrice,
		Reason:        req.Reason,
		OperationDate: req.WriteOffDate,
		RecordedAt:    s.now(),
	})
	persistErr = firstErr(persistErr, appendErr)

	stored, _ := s.catalog.Get(req.SKU)
	newValue := s.totalValue()
	conditions := []domain.PostCondition{
		{
			Description: "quantity decreased",
			Satisfied:   stored.Quantity == oldQuantity-req.Quantity,
			Details:     fmt.Sprintf("was %d, now %d", oldQuantity, stored.Quantity),
		},
		{
			Description: "write-off recorded in ledger",
			Satisfied:   s.hasRecord(record) && record.Quantity == req.Quantity,
			Details:     fmt.Sprintf("operation %s, quantity %d", record.ID, record.Quantity),
		},
		{
			Description: "total inventory value decreased",
			Satisfied:   newValue.LessThan(oldValue),
			Details:     fmt.Sprintf("was %s, now %s", oldValue.StringFixed(2), newValue.StringFixed(2)),
		},
		persistCondition(persistErr),
	}

	return s.success("goods written off", record, conditions, persistErr)
}

func (s *InventoryService) adjust(ctx context.Context, req AdjustmentRequest) domain.Result {
	product, err := s.validateAdjustment(req)
	if err != nil {
		return domain.Failure(err)
	}

	oldQuantity := product.Quantity
	difference := req.ActualQuantity - oldQuantity
	oldValue := s.totalValue()

	product.Quantity = req.ActualQuantity
	persistErr, err := splitPersist(s.catalog.Update(ctx, product))
	if err != nil {
		return domain.Failure(err)
	}

	record, appendErr := s.ledger.Append(ctx, domain.OperationRecord{
		ID:            uuid.NewString(),
		SKU:           req.SKU,
		Type:          domain.OperationAdjustment,
		Quantity:      req.ActualQuantity,
		Difference:    difference,
		Balance:       req.ActualQuantity,
		UnitPrice:     product.UnitPrice,
		Reason:        req.Reason,
		OperationDate: req.AdjustmentDate,
		RecordedAt:    s.now(),
	})
	persistErr = firstErr(persistErr, appendErr)

	stored, _ := s.catalog.Get(req.SKU)
	conditions := []domain.PostCondition{
		{
			Description: "quantity adjusted",
			Satisfied:   stored.Quantity == req.ActualQuantity,
			Details:     fmt.Sprintf("was %d, now %d, difference %+d", oldQuantity, stored.Quantity, difference),
		},
		{
			Description: "adjustment recorded in ledger",
			Satisfied:   s.hasRecord(record),
			Details:     fmt.Sprintf("operation %s", record.ID),
		},
		{
			Description: "total inventory value recalculated",
			Satisfied:   true,
			Details:     fmt.Sprintf("was %s, now %s", oldValue.StringFixed(2), s.totalValue().StringFixed(2)),
		},
		persistCondition(persistErr),
	}

	return s.success("inventory adjusted", record, conditions, persistErr)
}

func (s *InventoryService) validateReceive(req ReceiveRequest) error {
	switch {
	case blank(req.SKU):
		return errors.Wrap(domain.ErrValidation, "sku is required")
	case blank(req.Name):
		return errors.Wrap(domain.ErrValidation, "name is required")
	case blank(req.Supplier):
		return errors.Wrap(domain.ErrValidation, "supplier is required")
	case req.Quantity <= 0:
		return errors.Wrap(domain.ErrValidation, "quantity must be greater than 0")
	case !req.UnitPrice.IsPositive():
		return errors.Wrap(domain.ErrValidation, "unit price must be greater than 0")
	case !req.UnitPrice.Equal(req.UnitPrice.Truncate(domain.PriceScale)):
		return errors.Wrapf(domain.ErrValidation, "unit price cannot have more than %d decimal places", domain.PriceScale)
	case !req.UnitPrice.LessThan(domain.MaxUnitPrice):
		return errors.Wrapf(domain.ErrValidation, "unit price must be less than %s", domain.MaxUnitPrice)
	}
	if err := s.checkDate("delivery date", req.DeliveryDate); err != nil {
		return err
	}
	if _, ok := s.catalog.Get(req.SKU); ok {
		return errors.Wrapf(domain.ErrConflict, "sku %s", req.SKU)
	}
	return nil
}

func (s *InventoryService) validateWriteOff(req WriteOffRequest) (domain.Product, error) {
	switch {
	case blank(req.SKU):
		return domain.Product{}, errors.Wrap(domain.ErrValidation, "sku is required")
	case req.Quantity <= 0:
		return domain.Product{}, errors.Wrap(domain.ErrValidation, "quantity must be greater than 0")
	case blank(req.Reason):
		return domain.Product{}, errors.Wrap(domain.ErrValidation, "reason is required")
	}
	if err := s.checkDate("write-off date", req.WriteOffDate); err != nil {
		return domain.Product{}, err
	}
	product, ok := s.catalog.Get(req.SKU)
	if !ok {
		return domain.Product{}, errors.Wrapf(domain.ErrNotFound, "sku %s", req.SKU)
	}
	if product.Quantity < req.Quantity {
		return domain.Product{}, errors.Wrapf(domain.ErrInsufficientStock,
			"available %d, requested %d", product.Quantity, req.Quantity)
	}
	return product, nil
}

func (s *InventoryService) validateAdjustment(req AdjustmentRequest) (domain.Product, error) {
	switch {
	case blank(req.SKU):
		return domain.Product{}, errors.Wrap(domain.ErrValidation, "sku is required")
	case req.ActualQuantity < 0:
		return domain.Product{}, errors.Wrap(domain.ErrValidation, "actual quantity cannot be negative")
	case blank(req.Reason):
		return domain.Product{}, errors.Wrap(domain.ErrValidation, "reason is required")
	}
	if err := s.checkDate("adjustment date", req.AdjustmentDate); err != nil {
		return domain.Product{}, err
	}
	product, ok := s.catalog.Get(req.SKU)
	if !ok {
		return domain.Product{}, errors.Wrapf(domain.ErrNotFound, "sku %s", req.SKU)
	}
	return product, nil
}

func (s *InventoryService) checkDate(field string, date time.Time) error {
	if date.IsZero() {
		return errors.Wrapf(domain.ErrValidation, "%s is required", field)
	}
	if date.After(s.now()) {
		return errors.Wrapf(domain.ErrValidation, "%s cannot be in the future", field)
	}
	return nil
}

func (s *InventoryService) GetProduct(sku string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Get(sku)
}

func (s *InventoryService) ListAllProducts() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.ListAll()
}

func (s *InventoryService) ListAllOperations() []domain.OperationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ListAll()
}

func (s *InventoryService) ListOperationsBySKU(sku string) []domain.OperationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ListBySKU(sku)
}

// TotalInventoryValue is recomputed from the catalog on every call.
func (s *InventoryService) TotalInventoryValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalValue()
}

func (s *InventoryService) totalValue() decimal.Decimal {
	return domain.TotalValue(s.catalog.ListAll())
}

func (s *InventoryService) hasRecord(record domain.OperationRecord) bool {
	for _, r := range s.ledger.ListBySKU(record.SKU) {
		if r.ID == record.ID && r.Type == record.Type {
			return true
		}
	}
	return false
}

func (s *InventoryService) success(message string, record domain.OperationRecord, conditions []domain.PostCondition, persistErr error) domain.Result {
	if persistErr != nil {
		message = fmt.Sprintf("%s; changes kept in memory but not persisted: %v", message, persistErr)
	}
	return domain.Result{
		Success:        true,
		Message:        message,
		PostConditions: conditions,
		Record:         &record,
	}
}

func (s *InventoryService) handOff() {
	s.publishMu.Lock()
	s.mu.Unlock()
}

// finish runs outside mu: it logs the outcome and publishes the
// committed record.
func (s *InventoryService) finish(ctx context.Context, op domain.OperationType, sku string, result domain.Result) {
	entry := s.log.WithFields(logrus.Fields{
		"operation": op,
		"sku":       sku,
	})
	if !result.Success {
		entry.WithField("kind", result.Kind).Warn(result.Message)
		return
	}
	for _, pc := range result.PostConditions {
		if !pc.Satisfied {
			entry.WithFields(logrus.Fields{
				"postcondition": pc.Description,
				"details":       pc.Details,
			}).Error("postcondition not satisfied")
		}
	}
	entry.WithField("operation_id", result.Record.ID).Info(result.Message)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, *result.Record); err != nil {
		entry.WithError(err).Error("failed to publish operation")
	}
}

// splitPersist separates a snapshot write failure, after which the
// operation continues, from an error that aborts it.
func splitPersist(err error) (persistErr, fatal error) {
	if err == nil {
		return nil, nil
	}
	if errors.Is(err, domain.ErrPersistence) {
		return err, nil
	}
	return nil, err
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func persistCondition(err error) domain.PostCondition {
	if err != nil {
		return domain.PostCondition{
			Description: "snapshot persisted",
			Satisfied:   false,
			Details:     err.Error(),
		}
	}
	return domain.PostCondition{
		Description: "snapshot persisted",
		Satisfied:   true,
		Details:     "products and operations saved",
	}
}

func foundDetails(found bool, sku string) string {
	if !found {
		return "product not found"
	}
	return "sku " + sku
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
