package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minhvu/order-approval/internal/application/dispatcher"
	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/domain/event"
	"github.com/minhvu/order-approval/internal/domain/permission"
	"github.com/minhvu/order-approval/internal/domain/workflow"
	"github.com/minhvu/order-approval/internal/observability"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// OrderService is the order lifecycle engine. Every mutation of an order goes
// through Create or Transition; both write the status and the history entry in
// one transaction and emit a lifecycle event afterwards.
type OrderService interface {
	Create(ctx context.Context, actorID string, in CreateOrderInput) (*entity.Order, error)
	Transition(ctx context.Context, actorID string, orderID int64, action workflow.Action, in TransitionInput) (*entity.Order, error)
	GetOrder(ctx context.Context, actorID string, orderID int64) (*entity.Order, error)
	GetOrderByNumber(ctx context.Context, actorID string, number string) (*entity.Order, error)
	ListOrders(ctx context.Context, actorID string, limit, offset int) ([]*entity.Order, error)
	GetHistory(ctx context.Context, orderID int64) ([]*entity.HistoryEntry, error)
}

type orderServiceImpl struct {
	orderRepo   port.OrderRepository
	historyRepo port.HistoryRepository
	identity    port.IdentityService
	gate        permission.Gate
	txManager   port.TransactionManager
	events      dispatcher.Dispatcher
	metrics     *observability.Metrics
	logger      Logger
}

// NewOrderService creates the lifecycle engine
func NewOrderService(
	orderRepo port.OrderRepository,
	historyRepo port.HistoryRepository,
	identity port.IdentityService,
	gate permission.Gate,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	metrics *observability.Metrics,
	logger Logger,
) OrderService {
	return &orderServiceImpl{
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		identity:    identity,
		gate:        gate,
		txManager:   txManager,
		events:      events,
		metrics:     metrics,
		logger:      logger,
	}
}

// Create registers a new order in status pending with its immutable item set
func (s *orderServiceImpl) Create(ctx context.Context, actorID string, in CreateOrderInput) (*entity.Order, error) {
	role, err := s.identity.RoleOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown actor %s", ErrUnauthorized, actorID)
	}
	if !s.gate.Allowed(role, workflow.ActionCreate) {
		s.countRejected("unauthorized")
		return nil, fmt.Errorf("%w: role %s may not create orders", ErrUnauthorized, role)
	}

	if err := validateCreateInput(in); err != nil {
		s.countRejected("validation")
		return nil, err
	}

	now := time.Now()
	items := make([]*entity.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, &entity.OrderItem{
			Name:           it.Name,
			Description:    it.Description,
			SKU:            it.SKU,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			CreatedAt:      now,
		})
	}

	order := &entity.Order{
		Number:          entity.NewOrderNumber(now),
		Status:          workflow.StatusPending,
		CustomerName:    in.Customer.Name,
		CustomerPhone:   in.Customer.Phone,
		CustomerAddress: in.Customer.Address,
		TotalCents:      entity.ComputeTotalCents(items),
		CreatedBy:       actorID,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           items,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		entry := &entity.HistoryEntry{
			OrderID:   order.ID,
			Action:    "order_created",
			ToStatus:  workflow.StatusPending.String(),
			ActorID:   actorID,
			CreatedAt: now,
		}
		if err := s.historyRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create order", "error", err, "actor_id", actorID)
		return nil, err
	}

	s.countApplied(workflow.ActionCreate, workflow.StatusPending)
	s.logger.Info("Order created",
		"order_id", order.ID,
		"number", order.Number,
		"total_cents", order.TotalCents,
		"created_by", actorID,
	)

	evt := event.New(event.TypeOrderCreated, order.ID, order.Number)
	evt.Action = workflow.ActionCreate.String()
	evt.ToStatus = workflow.StatusPending.String()
	evt.ActorID = actorID
	s.dispatch(ctx, evt)

	return order, nil
}

// Transition applies one lifecycle action to the order. The status write and
// the history append commit together; notification fan-out runs after commit
// and its failures never surface to the caller.
func (s *orderServiceImpl) Transition(ctx context.Context, actorID string, orderID int64, action workflow.Action, in TransitionInput) (*entity.Order, error) {
	role, err := s.identity.RoleOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown actor %s", ErrUnauthorized, actorID)
	}
	if !action.IsValid() || action == workflow.ActionCreate {
		s.countRejected("validation")
		return nil, fmt.Errorf("%w: unsupported action %q", ErrValidation, action)
	}
	if !s.gate.Allowed(role, action) {
		s.countRejected("unauthorized")
		return nil, fmt.Errorf("%w: role %s may not %s", ErrUnauthorized, role, action)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.checkActorScope(role, actorID, action, order); err != nil {
		s.countRejected("unauthorized")
		return nil, err
	}

	fromStatus := order.Status
	toStatus, err := workflow.Fire(fromStatus, action)
	if err != nil {
		s.countRejected("invalid_state")
		return nil, err
	}

	rule, err := workflow.RuleFor(action)
	if err != nil {
		return nil, err
	}
	if rule.RequiresReason && strings.TrimSpace(in.Reason) == "" {
		s.countRejected("validation")
		return nil, fmt.Errorf("%w: reason: %v", ErrValidation, workflow.ErrReasonRequired)
	}

	now := time.Now()
	entry := &entity.HistoryEntry{
		OrderID:    order.ID,
		Action:     rule.HistoryAction,
		FromStatus: fromStatus.String(),
		ToStatus:   toStatus.String(),
		ActorID:    actorID,
		Reason:     in.Reason,
		Notes:      in.Notes,
		CreatedAt:  now,
	}

	apply, err := s.applyAction(order, action, in, actorID, now, entry)
	if err != nil {
		s.countRejected("validation")
		return nil, err
	}

	order.Status = toStatus
	order.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.UpdateTransition(txCtx, order); err != nil {
			return err
		}
		if apply != nil {
			if err := apply(txCtx); err != nil {
				return err
			}
		}
		if err := s.historyRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Transition failed",
			"order_id", orderID,
			"action", action,
			"from", fromStatus,
			"error", err,
		)
		s.countConflictOrStorage(err)
		return nil, err
	}

	s.countApplied(action, toStatus)
	s.logger.Info("Transition applied",
		"order_id", order.ID,
		"number", order.Number,
		"action", action,
		"from", fromStatus,
		"to", toStatus,
		"actor_id", actorID,
	)

	evt := event.New(event.TypeOrderTransitioned, order.ID, order.Number)
	evt.Action = action.String()
	evt.FromStatus = fromStatus.String()
	evt.ToStatus = toStatus.String()
	evt.ActorID = actorID
	evt.Reason = in.Reason
	evt.Notes = in.Notes
	s.dispatch(ctx, evt)

	return order, nil
}

// checkActorScope narrows actions that are role-permitted in general but
// restricted to the order's creator: sales resubmit and cancel their own
// orders only, and only while the order is still in their hands.
func (s *orderServiceImpl) checkActorScope(role permission.Role, actorID string, action workflow.Action, order *entity.Order) error {
	if role != permission.RoleSales {
		return nil
	}
	switch action {
	case workflow.ActionResubmit, workflow.ActionCancel:
		if order.CreatedBy != actorID {
			return fmt.Errorf("%w: order %s belongs to another sales user", ErrUnauthorized, order.Number)
		}
		if action == workflow.ActionCancel {
			switch order.Status {
			case workflow.StatusPending, workflow.StatusEditRequested, workflow.StatusFailed:
			default:
				return fmt.Errorf("%w: cannot cancel an order in status %s",
					workflow.ErrInvalidTransition, order.Status)
			}
		}
	}
	return nil
}

// applyAction writes the action-specific fields onto the order and fills the
// history entry's structured diff. It may return a deferred function that has
// to run inside the same transaction as the status write (item rewrites).
func (s *orderServiceImpl) applyAction(order *entity.Order, action workflow.Action, in TransitionInput, actorID string, now time.Time, entry *entity.HistoryEntry) (func(ctx context.Context) error, error) {
	switch action {
	case workflow.ActionApprove:
		order.ApprovedBy = actorID
		order.ApprovedAt = &now

	case workflow.ActionReject:
		order.RejectionReason = in.Reason

	case workflow.ActionRequestEdit:
		order.EditRequestReason = in.Reason

	case workflow.ActionResubmit:
		return s.applyResubmit(order, in, now, entry)

	case workflow.ActionCancel:
		order.CancelledBy = actorID
		order.CancelledAt = &now
		order.CancellationReason = in.Reason

	case workflow.ActionWarehouseConfirm:
		order.WarehouseConfirmedBy = actorID
		order.WarehouseConfirmedAt = &now

	case workflow.ActionWarehouseReject:
		order.WarehouseRejectionReason = in.Reason

	case workflow.ActionShip:
		order.ShippedBy = actorID
		order.ShippedAt = &now
		order.TrackingNumber = in.TrackingNumber
		order.ShippingNotes = in.Notes

	case workflow.ActionComplete, workflow.ActionPartialComplete:
		order.CompletedAt = &now
		order.CompletionNotes = in.Notes

	case workflow.ActionFail:
		order.FailureReason = in.Reason

	case workflow.ActionAmend:
		return s.applyAmend(order, in, entry)
	}
	return nil, nil
}

// applyResubmit applies the edited order and captures a field-level diff of
// everything that changed.
func (s *orderServiceImpl) applyResubmit(order *entity.Order, in TransitionInput, now time.Time, entry *entity.HistoryEntry) (func(ctx context.Context) error, error) {
	if in.Customer != nil {
		recordChange(entry, "customer_name", order.CustomerName, in.Customer.Name)
		recordChange(entry, "customer_phone", order.CustomerPhone, in.Customer.Phone)
		recordChange(entry, "customer_address", order.CustomerAddress, in.Customer.Address)
		order.CustomerName = in.Customer.Name
		order.CustomerPhone = in.Customer.Phone
		order.CustomerAddress = in.Customer.Address
	}

	if len(in.Items) == 0 {
		return nil, nil
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	items := make([]*entity.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, &entity.OrderItem{
			OrderID:        order.ID,
			Name:           it.Name,
			Description:    it.Description,
			SKU:            it.SKU,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			CreatedAt:      now,
		})
	}

	recordChange(entry, "items", renderItems(order.Items), renderItems(items))
	newTotal := entity.ComputeTotalCents(items)
	recordChange(entry, "total_cents",
		fmt.Sprintf("%d", order.TotalCents), fmt.Sprintf("%d", newTotal))

	order.TotalCents = newTotal
	order.Items = items

	orderID := order.ID
	return func(ctx context.Context) error {
		return s.orderRepo.ReplaceItems(ctx, orderID, items)
	}, nil
}

// applyAmend records the actually delivered quantities and amount on a
// partially completed order without moving its status.
func (s *orderServiceImpl) applyAmend(order *entity.Order, in TransitionInput, entry *entity.HistoryEntry) (func(ctx context.Context) error, error) {
	if len(in.Amendments) == 0 && in.ActualAmountCents == nil {
		return nil, fmt.Errorf("%w: amendments or actual_amount_cents required", ErrValidation)
	}

	byID := make(map[int64]*entity.OrderItem, len(order.Items))
	for _, item := range order.Items {
		byID[item.ID] = item
	}
	for _, a := range in.Amendments {
		item, ok := byID[a.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %d not on order", ErrValidation, a.ItemID)
		}
		if a.ShippedQuantity < 0 || a.ShippedQuantity > item.Quantity {
			return nil, fmt.Errorf("%w: shipped_quantity for item %d out of range", ErrValidation, a.ItemID)
		}
	}

	if in.ActualAmountCents != nil {
		old := ""
		if order.ActualAmountCents != nil {
			old = fmt.Sprintf("%d", *order.ActualAmountCents)
		}
		recordChange(entry, "actual_amount_cents", old, fmt.Sprintf("%d", *in.ActualAmountCents))
		order.ActualAmountCents = in.ActualAmountCents
	}

	amendments := in.Amendments
	orderID := order.ID
	for _, a := range amendments {
		item := byID[a.ItemID]
		recordChange(entry,
			fmt.Sprintf("item_%d_shipped_quantity", a.ItemID),
			fmt.Sprintf("%d", item.ShippedQuantity),
			fmt.Sprintf("%d", a.ShippedQuantity))
		item.ShippedQuantity = a.ShippedQuantity
	}

	return func(ctx context.Context) error {
		for _, a := range amendments {
			if err := s.orderRepo.UpdateItemFulfillment(ctx, orderID, a.ItemID, a.ShippedQuantity); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// GetOrder loads one order, subject to the caller's role view
func (s *orderServiceImpl) GetOrder(ctx context.Context, actorID string, orderID int64) (*entity.Order, error) {
	role, err := s.identity.RoleOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown actor %s", ErrUnauthorized, actorID)
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !permission.CanSee(role, order.Status) {
		return nil, port.ErrNotFound
	}
	return order, nil
}

// GetOrderByNumber loads one order by its human-facing number
func (s *orderServiceImpl) GetOrderByNumber(ctx context.Context, actorID string, number string) (*entity.Order, error) {
	role, err := s.identity.RoleOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown actor %s", ErrUnauthorized, actorID)
	}
	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !permission.CanSee(role, order.Status) {
		return nil, port.ErrNotFound
	}
	return order, nil
}

// ListOrders returns the orders visible to the caller's role, newest-first.
// Sales users see their own orders regardless of status.
func (s *orderServiceImpl) ListOrders(ctx context.Context, actorID string, limit, offset int) ([]*entity.Order, error) {
	role, err := s.identity.RoleOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown actor %s", ErrUnauthorized, actorID)
	}
	if role == permission.RoleSales {
		return s.orderRepo.ListByCreator(ctx, actorID, limit, offset)
	}
	return s.orderRepo.ListByStatuses(ctx, permission.ViewFor(role), limit, offset)
}

// GetHistory returns the order's audit trail, newest-first
func (s *orderServiceImpl) GetHistory(ctx context.Context, orderID int64) ([]*entity.HistoryEntry, error) {
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.historyRepo.GetByOrderID(ctx, orderID)
}

func (s *orderServiceImpl) dispatch(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Dispatch(ctx, evt); err != nil {
		// fan-out is best-effort; the committed transition stands
		s.logger.Error("Event dispatch failed", "event_type", evt.Type, "order_id", evt.OrderID, "error", err)
	}
}

func (s *orderServiceImpl) countApplied(action workflow.Action, to workflow.Status) {
	if s.metrics != nil {
		s.metrics.TransitionsApplied.WithLabelValues(action.String(), to.String()).Inc()
	}
}

func (s *orderServiceImpl) countRejected(reason string) {
	if s.metrics != nil {
		s.metrics.TransitionsRejected.WithLabelValues(reason).Inc()
	}
}

func (s *orderServiceImpl) countConflictOrStorage(err error) {
	if s.metrics == nil {
		return
	}
	if isConflict(err) {
		s.metrics.TransitionsRejected.WithLabelValues("conflict").Inc()
	} else {
		s.metrics.TransitionsRejected.WithLabelValues("storage").Inc()
	}
}

func isConflict(err error) bool {
	return errors.Is(err, port.ErrConflict)
}

// validateCreateInput checks customer info and the item set
func validateCreateInput(in CreateOrderInput) error {
	if strings.TrimSpace(in.Customer.Name) == "" {
		return fmt.Errorf("%w: customer.name is required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	return validateItems(in.Items)
}

func validateItems(items []ItemInput) error {
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: items[%d].name is required", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be positive", ErrValidation, i)
		}
		if it.UnitPriceCents < 0 {
			return fmt.Errorf("%w: items[%d].unit_price_cents must not be negative", ErrValidation, i)
		}
	}
	return nil
}

// recordChange appends a diff entry when old and new differ
func recordChange(entry *entity.HistoryEntry, field, oldValue, newValue string) {
	if oldValue == newValue {
		return
	}
	entry.Changes = append(entry.Changes, entity.FieldChange{
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
	})
}

// renderItems summarizes an item set for the diff payload
func renderItems(items []*entity.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d @%d", it.Name, it.Quantity, it.UnitPriceCents))
	}
	return strings.Join(parts, "; ")
}
