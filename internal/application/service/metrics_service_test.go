package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/domain/workflow"
)

func TestDashboardEmptyOrderSet(t *testing.T) {
	svc := NewMetricsService(&mockOrderRepo{}, defaultIdentity(), 5, noopLogger{})

	dash, err := svc.Dashboard(context.Background(), "accountant-1")
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if dash.TotalOrders != 0 {
		t.Errorf("expected 0 orders, got %d", dash.TotalOrders)
	}
	if dash.RevenueCents != 0 || dash.AverageOrderValueCents != 0 {
		t.Errorf("expected zero revenue figures, got %d / %d", dash.RevenueCents, dash.AverageOrderValueCents)
	}
	if dash.CompletionRate != 0 {
		t.Errorf("expected zero completion rate, got %f", dash.CompletionRate)
	}
	if len(dash.Priority) != 0 {
		t.Errorf("expected empty priority queue, got %d entries", len(dash.Priority))
	}
}

func TestDashboardAggregates(t *testing.T) {
	now := time.Now()
	orders := []*entity.Order{
		{ID: 1, Status: workflow.StatusCompleted, TotalCents: 3000, CreatedAt: now},
		{ID: 2, Status: workflow.StatusCompleted, TotalCents: 1000, CreatedAt: now},
		{ID: 3, Status: workflow.StatusPending, TotalCents: 9000, CreatedAt: now},
		{ID: 4, Status: workflow.StatusShipped, TotalCents: 500, CreatedAt: now},
	}
	orderRepo := &mockOrderRepo{
		listByStatusesFunc: func(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error) {
			return orders, nil
		},
	}
	svc := NewMetricsService(orderRepo, defaultIdentity(), 5, noopLogger{})

	dash, err := svc.Dashboard(context.Background(), "accountant-1")
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if dash.TotalOrders != 4 {
		t.Errorf("expected 4 orders, got %d", dash.TotalOrders)
	}
	if dash.StatusCounts[workflow.StatusCompleted] != 2 || dash.StatusCounts[workflow.StatusPending] != 1 {
		t.Errorf("unexpected status counts: %v", dash.StatusCounts)
	}
	// revenue counts completed orders only
	if dash.RevenueCents != 4000 {
		t.Errorf("expected revenue 4000, got %d", dash.RevenueCents)
	}
	if dash.AverageOrderValueCents != 2000 {
		t.Errorf("expected average 2000, got %d", dash.AverageOrderValueCents)
	}
	if dash.CompletionRate != 0.5 {
		t.Errorf("expected completion rate 0.5, got %f", dash.CompletionRate)
	}
	// the accountant acts on pending orders
	if len(dash.Priority) != 1 || dash.Priority[0].ID != 3 {
		t.Errorf("expected order 3 in the priority queue, got %v", dash.Priority)
	}
}

func TestDashboardPriorityOrderingAndCap(t *testing.T) {
	base := time.Now()
	orders := []*entity.Order{
		{ID: 1, Status: workflow.StatusPending, TotalCents: 100, CreatedAt: base},
		{ID: 2, Status: workflow.StatusPending, TotalCents: 500, CreatedAt: base.Add(time.Minute)},
		{ID: 3, Status: workflow.StatusPending, TotalCents: 500, CreatedAt: base},
		{ID: 4, Status: workflow.StatusPending, TotalCents: 900, CreatedAt: base},
	}
	orderRepo := &mockOrderRepo{
		listByStatusesFunc: func(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error) {
			return orders, nil
		},
	}
	svc := NewMetricsService(orderRepo, defaultIdentity(), 3, noopLogger{})

	dash, err := svc.Dashboard(context.Background(), "accountant-1")
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if len(dash.Priority) != 3 {
		t.Fatalf("expected priority capped at 3, got %d", len(dash.Priority))
	}
	// value descending, creation time ascending on ties
	want := []int64{4, 3, 2}
	for i, id := range want {
		if dash.Priority[i].ID != id {
			t.Errorf("priority[%d]: expected order %d, got %d", i, id, dash.Priority[i].ID)
		}
	}
}

func TestDashboardScopesSalesToOwnOrders(t *testing.T) {
	var creatorScoped bool
	orderRepo := &mockOrderRepo{
		listByCreatorFunc: func(ctx context.Context, creatorID string, limit, offset int) ([]*entity.Order, error) {
			creatorScoped = true
			if creatorID != "sales-1" {
				t.Errorf("expected creator sales-1, got %s", creatorID)
			}
			return nil, nil
		},
	}
	svc := NewMetricsService(orderRepo, defaultIdentity(), 5, noopLogger{})

	if _, err := svc.Dashboard(context.Background(), "sales-1"); err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if !creatorScoped {
		t.Error("sales dashboard must aggregate own orders only")
	}
}

func TestDashboardScopesShipperView(t *testing.T) {
	orderRepo := &mockOrderRepo{
		listByStatusesFunc: func(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error) {
			seen := make(map[workflow.Status]bool, len(statuses))
			for _, st := range statuses {
				seen[st] = true
			}
			if seen[workflow.StatusPending] || seen[workflow.StatusRejected] {
				t.Errorf("shipper view must not include pre-confirmation statuses: %v", statuses)
			}
			if !seen[workflow.StatusWarehouseConfirmed] || !seen[workflow.StatusFailed] {
				t.Errorf("shipper view missing expected statuses: %v", statuses)
			}
			return nil, nil
		},
	}
	svc := NewMetricsService(orderRepo, defaultIdentity(), 5, noopLogger{})

	if _, err := svc.Dashboard(context.Background(), "shipper-1"); err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
}

func TestDashboardUnknownActor(t *testing.T) {
	svc := NewMetricsService(&mockOrderRepo{}, defaultIdentity(), 5, noopLogger{})
	if _, err := svc.Dashboard(context.Background(), "ghost"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
