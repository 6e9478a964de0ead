package service

import (
	"context"
	"fmt"
	"time"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/domain/event"
	"github.com/minhvu/order-approval/internal/domain/permission"
	"github.com/minhvu/order-approval/internal/domain/workflow"
	"github.com/minhvu/order-approval/internal/observability"
)

// NotificationService computes the recipient fan-out of lifecycle events,
// persists one Notification per recipient, and hands each to the delivery
// channel for a best-effort live push. It also serves the recipient's inbox.
type NotificationService interface {
	// HandleLifecycleEvent is subscribed to the event dispatcher
	HandleLifecycleEvent(ctx context.Context, evt *event.Event) error

	List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, recipientID string, id int64) error
	MarkAllRead(ctx context.Context, recipientID string) error
	Delete(ctx context.Context, recipientID string, id int64) error
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// recipientRule declares who hears about one lifecycle action
type recipientRule struct {
	roles              []permission.Role
	creator            bool
	approver           bool
	warehouseConfirmer bool
	admins             bool
}

// fanout maps each history action tag to its recipients. The creator-flag
// recipients are resolved from the order; role recipients through the
// identity service. Recipients are deduplicated and the acting user is
// excluded: nobody is notified about their own action.
var fanout = map[string]recipientRule{
	"order_created":           {roles: []permission.Role{permission.RoleAccountant}},
	"order_approved":          {roles: []permission.Role{permission.RoleWarehouse}, creator: true},
	"order_rejected":          {creator: true},
	"edit_requested":          {creator: true},
	"order_resubmitted":       {roles: []permission.Role{permission.RoleAccountant}},
	"order_cancelled":         {creator: true, admins: true},
	"warehouse_confirmed":     {roles: []permission.Role{permission.RoleShipper}, creator: true},
	"warehouse_rejected":      {creator: true, approver: true},
	"order_shipped":           {creator: true},
	"order_completed":         {creator: true, admins: true},
	"order_partial_completed": {creator: true, admins: true},
	"order_failed":            {creator: true, warehouseConfirmer: true},
	"order_amended":           {creator: true},
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	orderRepo        port.OrderRepository
	identity         port.IdentityService
	delivery         port.DeliveryChannel
	metrics          *observability.Metrics
	logger           Logger
}

// NewNotificationService creates the fan-out service
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	orderRepo port.OrderRepository,
	identity port.IdentityService,
	delivery port.DeliveryChannel,
	metrics *observability.Metrics,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		orderRepo:        orderRepo,
		identity:         identity,
		delivery:         delivery,
		metrics:          metrics,
		logger:           logger,
	}
}

// HandleLifecycleEvent fans the event out. Persistence of each notification
// happens before its push; a failed push is logged and not retried, because
// the durable row is the reliable record.
func (s *notificationServiceImpl) HandleLifecycleEvent(ctx context.Context, evt *event.Event) error {
	rule, ok := fanout[historyActionOf(evt)]
	if !ok {
		return nil
	}

	order, err := s.orderRepo.GetByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("load order for fan-out: %w", err)
	}

	recipients, err := s.resolveRecipients(ctx, rule, order, evt.ActorID)
	if err != nil {
		return err
	}

	title, message := composeMessage(evt, order)
	for _, recipientID := range recipients {
		n := &entity.Notification{
			RecipientID: recipientID,
			Title:       title,
			Message:     message,
			Type:        historyActionOf(evt),
			OrderID:     order.ID,
			CreatedAt:   time.Now(),
		}
		if err := s.notificationRepo.Create(ctx, n); err != nil {
			s.logger.Error("Failed to persist notification",
				"recipient_id", recipientID,
				"order_id", order.ID,
				"error", err,
			)
			continue
		}
		if s.metrics != nil {
			s.metrics.NotificationsSent.WithLabelValues(n.Type).Inc()
		}

		if s.delivery == nil {
			continue
		}
		push := port.Push{Type: "notification", Data: n}
		if err := s.delivery.SendToUser(ctx, recipientID, push); err != nil {
			// at-most-once live hint; the durable row will be fetched on reconnect
			if s.metrics != nil {
				s.metrics.PushFailures.Inc()
			}
			s.logger.Error("Push delivery failed",
				"recipient_id", recipientID,
				"order_id", order.ID,
				"error", err,
			)
		}
	}

	return nil
}

// resolveRecipients expands the rule into a deduplicated recipient list,
// excluding the acting user
func (s *notificationServiceImpl) resolveRecipients(ctx context.Context, rule recipientRule, order *entity.Order, actorID string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id == "" || id == actorID || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	if rule.creator {
		add(order.CreatedBy)
	}
	if rule.approver {
		add(order.ApprovedBy)
	}
	if rule.warehouseConfirmer {
		add(order.WarehouseConfirmedBy)
	}

	roles := rule.roles
	if rule.admins {
		roles = append(append([]permission.Role(nil), roles...), permission.RoleAdmin)
	}
	for _, role := range roles {
		users, err := s.identity.UsersWithRole(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("resolve %s recipients: %w", role, err)
		}
		for _, id := range users {
			add(id)
		}
	}

	return out, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	return s.notificationRepo.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, recipientID string, id int64) error {
	return s.notificationRepo.MarkRead(ctx, recipientID, id)
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, recipientID string) error {
	return s.notificationRepo.MarkAllRead(ctx, recipientID)
}

func (s *notificationServiceImpl) Delete(ctx context.Context, recipientID string, id int64) error {
	return s.notificationRepo.Delete(ctx, recipientID, id)
}

func (s *notificationServiceImpl) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return s.notificationRepo.CountUnread(ctx, recipientID)
}

// historyActionOf maps the event back to the history action tag driving the
// fan-out table
func historyActionOf(evt *event.Event) string {
	if evt.Type == event.TypeOrderCreated {
		return "order_created"
	}
	rule, err := workflow.RuleFor(workflow.Action(evt.Action))
	if err != nil {
		return evt.Action
	}
	return rule.HistoryAction
}

// composeMessage builds the human-facing title and body for one event
func composeMessage(evt *event.Event, order *entity.Order) (string, string) {
	var title, message string
	switch historyActionOf(evt) {
	case "order_created":
		title = fmt.Sprintf("New order %s", order.Number)
		message = fmt.Sprintf("Order %s for %s is waiting for review.", order.Number, order.CustomerName)
	case "order_approved":
		title = fmt.Sprintf("Order %s approved", order.Number)
		message = fmt.Sprintf("Order %s was approved and is ready for warehouse confirmation.", order.Number)
	case "order_rejected":
		title = fmt.Sprintf("Order %s rejected", order.Number)
		message = fmt.Sprintf("Order %s was rejected: %s", order.Number, evt.Reason)
	case "edit_requested":
		title = fmt.Sprintf("Changes requested on order %s", order.Number)
		message = fmt.Sprintf("Order %s needs changes before approval: %s", order.Number, evt.Reason)
	case "order_resubmitted":
		title = fmt.Sprintf("Order %s resubmitted", order.Number)
		message = fmt.Sprintf("Order %s was edited and resubmitted for review.", order.Number)
	case "order_cancelled":
		title = fmt.Sprintf("Order %s cancelled", order.Number)
		message = fmt.Sprintf("Order %s was cancelled.", order.Number)
		if evt.Reason != "" {
			message = fmt.Sprintf("Order %s was cancelled: %s", order.Number, evt.Reason)
		}
	case "warehouse_confirmed":
		title = fmt.Sprintf("Order %s ready to ship", order.Number)
		message = fmt.Sprintf("Warehouse confirmed stock for order %s.", order.Number)
	case "warehouse_rejected":
		title = fmt.Sprintf("Warehouse rejected order %s", order.Number)
		message = fmt.Sprintf("Order %s was sent back for editing: %s", order.Number, evt.Reason)
	case "order_shipped":
		title = fmt.Sprintf("Order %s shipped", order.Number)
		message = fmt.Sprintf("Order %s is on its way to %s.", order.Number, order.CustomerName)
		if order.TrackingNumber != "" {
			message = fmt.Sprintf("Order %s is on its way to %s (tracking %s).",
				order.Number, order.CustomerName, order.TrackingNumber)
		}
	case "order_completed":
		title = fmt.Sprintf("Order %s completed", order.Number)
		message = fmt.Sprintf("Order %s was delivered in full.", order.Number)
	case "order_partial_completed":
		title = fmt.Sprintf("Order %s partially completed", order.Number)
		message = fmt.Sprintf("Order %s was partially delivered.", order.Number)
		if evt.Notes != "" {
			message = fmt.Sprintf("Order %s was partially delivered: %s", order.Number, evt.Notes)
		}
	case "order_failed":
		title = fmt.Sprintf("Delivery failed for order %s", order.Number)
		message = fmt.Sprintf("Order %s could not be delivered: %s", order.Number, evt.Reason)
	case "order_amended":
		title = fmt.Sprintf("Order %s amended", order.Number)
		message = fmt.Sprintf("Delivered quantities on order %s were adjusted.", order.Number)
	default:
		title = fmt.Sprintf("Order %s updated", order.Number)
		message = fmt.Sprintf("Order %s changed status to %s.", order.Number, evt.ToStatus)
	}
	return title, message
}
