package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/domain/permission"
	"github.com/minhvu/order-approval/internal/domain/workflow"
)

// Mock repositories and collaborators

type mockOrderRepo struct {
	createFunc                func(ctx context.Context, order *entity.Order) error
	getByIDFunc               func(ctx context.Context, id int64) (*entity.Order, error)
	getByNumberFunc           func(ctx context.Context, number string) (*entity.Order, error)
	listByStatusesFunc        func(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error)
	listByCreatorFunc         func(ctx context.Context, creatorID string, limit, offset int) ([]*entity.Order, error)
	updateTransitionFunc      func(ctx context.Context, order *entity.Order) error
	replaceItemsFunc          func(ctx context.Context, orderID int64, items []*entity.OrderItem) error
	updateItemFulfillmentFunc func(ctx context.Context, orderID int64, itemID int64, shippedQty int) error
}

func (m *mockOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, order)
	}
	order.ID = 1
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Order{ID: id, Status: workflow.StatusPending, Version: 1}, nil
}

func (m *mockOrderRepo) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	if m.getByNumberFunc != nil {
		return m.getByNumberFunc(ctx, number)
	}
	return nil, port.ErrNotFound
}

func (m *mockOrderRepo) ListByStatuses(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error) {
	if m.listByStatusesFunc != nil {
		return m.listByStatusesFunc(ctx, statuses, limit, offset)
	}
	return nil, nil
}

func (m *mockOrderRepo) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*entity.Order, error) {
	if m.listByCreatorFunc != nil {
		return m.listByCreatorFunc(ctx, creatorID, limit, offset)
	}
	return nil, nil
}

func (m *mockOrderRepo) UpdateTransition(ctx context.Context, order *entity.Order) error {
	if m.updateTransitionFunc != nil {
		return m.updateTransitionFunc(ctx, order)
	}
	return nil
}

func (m *mockOrderRepo) ReplaceItems(ctx context.Context, orderID int64, items []*entity.OrderItem) error {
	if m.replaceItemsFunc != nil {
		return m.replaceItemsFunc(ctx, orderID, items)
	}
	return nil
}

func (m *mockOrderRepo) UpdateItemFulfillment(ctx context.Context, orderID int64, itemID int64, shippedQty int) error {
	if m.updateItemFulfillmentFunc != nil {
		return m.updateItemFulfillmentFunc(ctx, orderID, itemID, shippedQty)
	}
	return nil
}

type mockHistoryRepo struct {
	createFunc       func(ctx context.Context, entry *entity.HistoryEntry) error
	getByOrderIDFunc func(ctx context.Context, orderID int64) ([]*entity.HistoryEntry, error)
	entries          []*entity.HistoryEntry
}

func (m *mockHistoryRepo) Create(ctx context.Context, entry *entity.HistoryEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistoryRepo) GetByOrderID(ctx context.Context, orderID int64) ([]*entity.HistoryEntry, error) {
	if m.getByOrderIDFunc != nil {
		return m.getByOrderIDFunc(ctx, orderID)
	}
	return m.entries, nil
}

type mockNotificationRepo struct {
	createFunc      func(ctx context.Context, n *entity.Notification) error
	listFunc        func(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	markReadFunc    func(ctx context.Context, recipientID string, id int64) error
	markAllReadFunc func(ctx context.Context, recipientID string) error
	deleteFunc      func(ctx context.Context, recipientID string, id int64) error
	countUnreadFunc func(ctx context.Context, recipientID string) (int, error)
	created         []*entity.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, n)
	}
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, recipientID, unreadOnly, limit, offset)
	}
	return nil, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, recipientID string, id int64) error {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, recipientID, id)
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) error {
	if m.markAllReadFunc != nil {
		return m.markAllReadFunc(ctx, recipientID)
	}
	return nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, recipientID string, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, recipientID, id)
	}
	return nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	if m.countUnreadFunc != nil {
		return m.countUnreadFunc(ctx, recipientID)
	}
	return 0, nil
}

// mockIdentity resolves roles from a static map
type mockIdentity struct {
	roles map[string]permission.Role
}

func (m *mockIdentity) RoleOf(ctx context.Context, userID string) (permission.Role, error) {
	role, ok := m.roles[userID]
	if !ok {
		return "", port.ErrNotFound
	}
	return role, nil
}

func (m *mockIdentity) UsersWithRole(ctx context.Context, role permission.Role) ([]string, error) {
	var out []string
	for id, r := range m.roles {
		if r == role {
			out = append(out, id)
		}
	}
	return out, nil
}

// mockTxManager runs the function directly; the repositories are mocks anyway
type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockDelivery struct {
	sendToUserFunc func(ctx context.Context, userID string, push port.Push) error
	sent           []string
}

func (m *mockDelivery) SendToUser(ctx context.Context, userID string, push port.Push) error {
	if m.sendToUserFunc != nil {
		return m.sendToUserFunc(ctx, userID, push)
	}
	m.sent = append(m.sent, userID)
	return nil
}

func (m *mockDelivery) SendToRole(ctx context.Context, role permission.Role, push port.Push, excludeID string) error {
	return nil
}

func (m *mockDelivery) Broadcast(ctx context.Context, push port.Push, excludeID string) error {
	return nil
}

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

func defaultIdentity() *mockIdentity {
	return &mockIdentity{roles: map[string]permission.Role{
		"sales-1":      permission.RoleSales,
		"sales-2":      permission.RoleSales,
		"accountant-1": permission.RoleAccountant,
		"warehouse-1":  permission.RoleWarehouse,
		"shipper-1":    permission.RoleShipper,
		"admin-1":      permission.RoleAdmin,
	}}
}

func newTestOrderService(orderRepo *mockOrderRepo, historyRepo *mockHistoryRepo) OrderService {
	return NewOrderService(
		orderRepo,
		historyRepo,
		defaultIdentity(),
		permission.NewGate(),
		&mockTxManager{},
		nil,
		nil,
		noopLogger{},
	)
}

// Tests

func TestCreateOrder(t *testing.T) {
	orderRepo := &mockOrderRepo{}
	historyRepo := &mockHistoryRepo{}
	svc := newTestOrderService(orderRepo, historyRepo)

	in := CreateOrderInput{
		Customer: CustomerInfo{Name: "Nguyen Van A", Phone: "0901", Address: "HCMC"},
		Items: []ItemInput{
			{Name: "Widget", UnitPriceCents: 500, Quantity: 3},
			{Name: "Gadget", UnitPriceCents: 1000, Quantity: 1},
		},
	}

	order, err := svc.Create(context.Background(), "sales-1", in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if order.Status != workflow.StatusPending {
		t.Errorf("expected status pending, got %s", order.Status)
	}
	if order.TotalCents != 2500 {
		t.Errorf("expected total 2500 cents, got %d", order.TotalCents)
	}
	if order.CreatedBy != "sales-1" {
		t.Errorf("expected created_by sales-1, got %s", order.CreatedBy)
	}
	if order.Number == "" {
		t.Error("expected a generated order number")
	}
	if order.Version != 1 {
		t.Errorf("expected version 1, got %d", order.Version)
	}

	if len(historyRepo.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(historyRepo.entries))
	}
	if historyRepo.entries[0].Action != "order_created" {
		t.Errorf("expected order_created entry, got %s", historyRepo.entries[0].Action)
	}
}

func TestCreateOrderRequiresSalesRole(t *testing.T) {
	svc := newTestOrderService(&mockOrderRepo{}, &mockHistoryRepo{})

	in := CreateOrderInput{
		Customer: CustomerInfo{Name: "Customer"},
		Items:    []ItemInput{{Name: "Widget", UnitPriceCents: 100, Quantity: 1}},
	}

	for _, actor := range []string{"accountant-1", "warehouse-1", "shipper-1", "admin-1"} {
		if _, err := svc.Create(context.Background(), actor, in); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("actor %s: expected ErrUnauthorized, got %v", actor, err)
		}
	}

	if _, err := svc.Create(context.Background(), "stranger", in); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unknown actor: expected ErrUnauthorized, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestOrderService(&mockOrderRepo{}, &mockHistoryRepo{})

	tests := []struct {
		name string
		in   CreateOrderInput
	}{
		{"missing customer name", CreateOrderInput{
			Items: []ItemInput{{Name: "Widget", UnitPriceCents: 100, Quantity: 1}},
		}},
		{"no items", CreateOrderInput{
			Customer: CustomerInfo{Name: "Customer"},
		}},
		{"zero quantity", CreateOrderInput{
			Customer: CustomerInfo{Name: "Customer"},
			Items:    []ItemInput{{Name: "Widget", UnitPriceCents: 100, Quantity: 0}},
		}},
		{"negative price", CreateOrderInput{
			Customer: CustomerInfo{Name: "Customer"},
			Items:    []ItemInput{{Name: "Widget", UnitPriceCents: -1, Quantity: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), "sales-1", tt.in); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestTransitionApprove(t *testing.T) {
	order := &entity.Order{ID: 7, Number: "SO-1", Status: workflow.StatusPending, CreatedBy: "sales-1", Version: 1}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	historyRepo := &mockHistoryRepo{}
	svc := newTestOrderService(orderRepo, historyRepo)

	got, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionApprove, TransitionInput{})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if got.Status != workflow.StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if got.ApprovedBy != "accountant-1" || got.ApprovedAt == nil {
		t.Error("expected approver fields to be stamped")
	}

	if len(historyRepo.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(historyRepo.entries))
	}
	entry := historyRepo.entries[0]
	if entry.Action != "order_approved" || entry.FromStatus != "pending" || entry.ToStatus != "approved" {
		t.Errorf("unexpected history entry: %+v", entry)
	}
}

func TestTransitionRejectRequiresReason(t *testing.T) {
	order := &entity.Order{ID: 7, Status: workflow.StatusPending, CreatedBy: "sales-1", Version: 1}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	_, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionReject, TransitionInput{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing reason, got %v", err)
	}

	got, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionReject,
		TransitionInput{Reason: "price mismatch"})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if got.Status != workflow.StatusRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
	if got.RejectionReason != "price mismatch" {
		t.Errorf("expected rejection reason to be recorded, got %q", got.RejectionReason)
	}
}

func TestTransitionFromTerminalStatusFails(t *testing.T) {
	// reject is idempotence-hostile on purpose: the second reject must fail
	order := &entity.Order{ID: 7, Status: workflow.StatusRejected, CreatedBy: "sales-1", Version: 2}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	_, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionReject,
		TransitionInput{Reason: "again"})
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	_, err = svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionApprove, TransitionInput{})
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionUnauthorizedRole(t *testing.T) {
	order := &entity.Order{ID: 7, Status: workflow.StatusPending, CreatedBy: "sales-1", Version: 1}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	_, err := svc.Transition(context.Background(), "warehouse-1", 7, workflow.ActionApprove, TransitionInput{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSalesCannotTouchOthersOrders(t *testing.T) {
	order := &entity.Order{ID: 7, Status: workflow.StatusEditRequested, CreatedBy: "sales-1", Version: 2}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	_, err := svc.Transition(context.Background(), "sales-2", 7, workflow.ActionResubmit, TransitionInput{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for foreign order, got %v", err)
	}

	_, err = svc.Transition(context.Background(), "sales-2", 7, workflow.ActionCancel, TransitionInput{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for foreign cancel, got %v", err)
	}
}

func TestSalesCancelScope(t *testing.T) {
	// sales may cancel only while the order is still in their hands;
	// admin cancel has no such restriction
	for _, st := range []workflow.Status{workflow.StatusPending, workflow.StatusEditRequested, workflow.StatusFailed} {
		order := &entity.Order{ID: 7, Status: st, CreatedBy: "sales-1", Version: 1}
		orderRepo := &mockOrderRepo{
			getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
		}
		svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

		got, err := svc.Transition(context.Background(), "sales-1", 7, workflow.ActionCancel, TransitionInput{})
		if err != nil {
			t.Fatalf("cancel from %s failed: %v", st, err)
		}
		if got.Status != workflow.StatusCancelled {
			t.Errorf("expected cancelled, got %s", got.Status)
		}
	}

	order := &entity.Order{ID: 7, Status: workflow.StatusApproved, CreatedBy: "sales-1", Version: 2}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	if _, err := svc.Transition(context.Background(), "sales-1", 7, workflow.ActionCancel, TransitionInput{}); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for sales cancel of approved order, got %v", err)
	}

	got, err := svc.Transition(context.Background(), "admin-1", 7, workflow.ActionCancel, TransitionInput{})
	if err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if got.CancelledBy != "admin-1" {
		t.Errorf("expected cancelled_by admin-1, got %s", got.CancelledBy)
	}
}

func TestTransitionConcurrentConflict(t *testing.T) {
	order := &entity.Order{ID: 7, Status: workflow.StatusPending, CreatedBy: "sales-1", Version: 1}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
		updateTransitionFunc: func(ctx context.Context, o *entity.Order) error {
			return port.ErrConflict
		},
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	_, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionApprove, TransitionInput{})
	if !errors.Is(err, port.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestHistoryFailureAbortsTransition(t *testing.T) {
	order := &entity.Order{ID: 7, Status: workflow.StatusPending, CreatedBy: "sales-1", Version: 1}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	historyRepo := &mockHistoryRepo{
		createFunc: func(ctx context.Context, entry *entity.HistoryEntry) error {
			return errors.New("disk full")
		},
	}
	svc := newTestOrderService(orderRepo, historyRepo)

	if _, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionApprove, TransitionInput{}); err == nil {
		t.Fatal("expected the transition to fail when the ledger write fails")
	}
}

func TestResubmitRecordsFieldDiff(t *testing.T) {
	order := &entity.Order{
		ID:           7,
		Status:       workflow.StatusEditRequested,
		CreatedBy:    "sales-1",
		CustomerName: "Old Name",
		TotalCents:   1000,
		Version:      2,
		Items:        []*entity.OrderItem{{ID: 1, Name: "Widget", UnitPriceCents: 1000, Quantity: 1}},
	}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	historyRepo := &mockHistoryRepo{}
	svc := newTestOrderService(orderRepo, historyRepo)

	in := TransitionInput{
		Customer: &CustomerInfo{Name: "New Name"},
		Items:    []ItemInput{{Name: "Widget", UnitPriceCents: 1000, Quantity: 2}},
	}
	got, err := svc.Transition(context.Background(), "sales-1", 7, workflow.ActionResubmit, in)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if got.Status != workflow.StatusPending {
		t.Errorf("expected pending after resubmit, got %s", got.Status)
	}
	if got.TotalCents != 2000 {
		t.Errorf("expected recomputed total 2000, got %d", got.TotalCents)
	}

	if len(historyRepo.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(historyRepo.entries))
	}
	changed := make(map[string]entity.FieldChange)
	for _, ch := range historyRepo.entries[0].Changes {
		changed[ch.Field] = ch
	}
	if ch, ok := changed["customer_name"]; !ok || ch.OldValue != "Old Name" || ch.NewValue != "New Name" {
		t.Errorf("expected customer_name diff, got %+v", changed)
	}
	if ch, ok := changed["total_cents"]; !ok || ch.OldValue != "1000" || ch.NewValue != "2000" {
		t.Errorf("expected total_cents diff, got %+v", changed)
	}
}

func TestShipStampsTracking(t *testing.T) {
	order := &entity.Order{ID: 7, Status: workflow.StatusWarehouseConfirmed, CreatedBy: "sales-1", Version: 3}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	got, err := svc.Transition(context.Background(), "shipper-1", 7, workflow.ActionShip,
		TransitionInput{TrackingNumber: "VN123", Notes: "fragile"})
	if err != nil {
		t.Fatalf("ship failed: %v", err)
	}
	if got.TrackingNumber != "VN123" || got.ShippedBy != "shipper-1" || got.ShippedAt == nil {
		t.Errorf("expected shipping fields to be stamped: %+v", got)
	}
}

func TestFailPathKeepsHistoricalFields(t *testing.T) {
	confirmedAt := time.Now().Add(-time.Hour)
	order := &entity.Order{
		ID:                   7,
		Status:               workflow.StatusShipped,
		CreatedBy:            "sales-1",
		ApprovedBy:           "accountant-1",
		WarehouseConfirmedBy: "warehouse-1",
		WarehouseConfirmedAt: &confirmedAt,
		ShippedBy:            "shipper-1",
		Version:              4,
	}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	got, err := svc.Transition(context.Background(), "shipper-1", 7, workflow.ActionFail,
		TransitionInput{Reason: "recipient unreachable"})
	if err != nil {
		t.Fatalf("fail transition failed: %v", err)
	}
	if got.Status != workflow.StatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.FailureReason != "recipient unreachable" {
		t.Errorf("expected failure reason, got %q", got.FailureReason)
	}
	// earlier transition facts survive the failure
	if got.ApprovedBy != "accountant-1" || got.WarehouseConfirmedBy != "warehouse-1" || got.ShippedBy != "shipper-1" {
		t.Errorf("historical fields must not be cleared: %+v", got)
	}
}

func TestAmendPartialComplete(t *testing.T) {
	order := &entity.Order{
		ID:        7,
		Status:    workflow.StatusPartialComplete,
		CreatedBy: "sales-1",
		Version:   5,
		Items: []*entity.OrderItem{
			{ID: 11, Name: "Widget", UnitPriceCents: 500, Quantity: 4},
		},
	}
	var fulfillmentWrites int
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
		updateItemFulfillmentFunc: func(ctx context.Context, orderID, itemID int64, shippedQty int) error {
			fulfillmentWrites++
			if itemID != 11 || shippedQty != 3 {
				t.Errorf("unexpected fulfillment write: item %d qty %d", itemID, shippedQty)
			}
			return nil
		},
	}
	historyRepo := &mockHistoryRepo{}
	svc := newTestOrderService(orderRepo, historyRepo)

	actual := int64(1500)
	got, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionAmend, TransitionInput{
		Amendments:        []AmendmentItem{{ItemID: 11, ShippedQuantity: 3}},
		ActualAmountCents: &actual,
	})
	if err != nil {
		t.Fatalf("amend failed: %v", err)
	}
	if got.Status != workflow.StatusPartialComplete {
		t.Errorf("amend must not move the status, got %s", got.Status)
	}
	if got.ActualAmountCents == nil || *got.ActualAmountCents != 1500 {
		t.Errorf("expected actual amount 1500, got %v", got.ActualAmountCents)
	}
	if fulfillmentWrites != 1 {
		t.Errorf("expected 1 fulfillment write, got %d", fulfillmentWrites)
	}
	if len(historyRepo.entries) != 1 || historyRepo.entries[0].Action != "order_amended" {
		t.Errorf("expected an order_amended ledger entry")
	}
}

func TestAmendValidation(t *testing.T) {
	order := &entity.Order{
		ID:        7,
		Status:    workflow.StatusPartialComplete,
		CreatedBy: "sales-1",
		Version:   5,
		Items:     []*entity.OrderItem{{ID: 11, Quantity: 4}},
	}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	tests := []struct {
		name string
		in   TransitionInput
	}{
		{"empty payload", TransitionInput{}},
		{"unknown item", TransitionInput{Amendments: []AmendmentItem{{ItemID: 99, ShippedQuantity: 1}}}},
		{"over ordered quantity", TransitionInput{Amendments: []AmendmentItem{{ItemID: 11, ShippedQuantity: 5}}}},
		{"negative quantity", TransitionInput{Amendments: []AmendmentItem{{ItemID: 11, ShippedQuantity: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Transition(context.Background(), "accountant-1", 7, workflow.ActionAmend, tt.in); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestGetOrderRespectsRoleView(t *testing.T) {
	order := &entity.Order{ID: 7, Status: workflow.StatusPending, CreatedBy: "sales-1", Version: 1}
	orderRepo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Order, error) { return order, nil },
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	if _, err := svc.GetOrder(context.Background(), "accountant-1", 7); err != nil {
		t.Errorf("accountant should see a pending order: %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), "warehouse-1", 7); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("warehouse should not see a pending order, got %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), "shipper-1", 7); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("shipper should not see a pending order, got %v", err)
	}
}

func TestListOrdersScoping(t *testing.T) {
	var byCreator, byStatuses bool
	orderRepo := &mockOrderRepo{
		listByCreatorFunc: func(ctx context.Context, creatorID string, limit, offset int) ([]*entity.Order, error) {
			byCreator = true
			if creatorID != "sales-1" {
				t.Errorf("expected creator scope sales-1, got %s", creatorID)
			}
			return nil, nil
		},
		listByStatusesFunc: func(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error) {
			byStatuses = true
			if len(statuses) != 5 {
				t.Errorf("expected warehouse view of 5 statuses, got %d", len(statuses))
			}
			return nil, nil
		},
	}
	svc := newTestOrderService(orderRepo, &mockHistoryRepo{})

	if _, err := svc.ListOrders(context.Background(), "sales-1", 10, 0); err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if !byCreator {
		t.Error("sales listing must scope by creator")
	}

	if _, err := svc.ListOrders(context.Background(), "warehouse-1", 10, 0); err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if !byStatuses {
		t.Error("warehouse listing must scope by role view")
	}
}
