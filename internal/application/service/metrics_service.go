package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/domain/permission"
	"github.com/minhvu/order-approval/internal/domain/workflow"
)

// RoleDashboard is the role-scoped aggregate view over the order set. It is
// recomputed on demand; there is no mutable aggregate state to keep in sync.
type RoleDashboard struct {
	Role                   string                  `json:"role"`
	TotalOrders            int                     `json:"total_orders"`
	StatusCounts           map[workflow.Status]int `json:"status_counts"`
	RevenueCents           int64                   `json:"revenue_cents"`
	AverageOrderValueCents int64                   `json:"average_order_value_cents"`
	CompletionRate         float64                 `json:"completion_rate"`
	Priority               []*entity.Order         `json:"priority"`
}

// MetricsService derives dashboards from the current order set
type MetricsService interface {
	Dashboard(ctx context.Context, actorID string) (*RoleDashboard, error)
}

type metricsServiceImpl struct {
	orderRepo    port.OrderRepository
	identity     port.IdentityService
	prioritySize int
	logger       Logger
}

// NewMetricsService creates the dashboard reducer. prioritySize caps the
// priority queue; zero or negative falls back to 5.
func NewMetricsService(orderRepo port.OrderRepository, identity port.IdentityService, prioritySize int, logger Logger) MetricsService {
	if prioritySize <= 0 {
		prioritySize = 5
	}
	return &metricsServiceImpl{
		orderRepo:    orderRepo,
		identity:     identity,
		prioritySize: prioritySize,
		logger:       logger,
	}
}

// Dashboard scans the orders visible to the actor's role and folds them into
// counts, revenue over completed orders, and a priority queue of the most
// valuable actionable orders. An empty order set yields zeros throughout.
func (s *metricsServiceImpl) Dashboard(ctx context.Context, actorID string) (*RoleDashboard, error) {
	role, err := s.identity.RoleOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown actor %s", ErrUnauthorized, actorID)
	}

	var orders []*entity.Order
	if role == permission.RoleSales {
		orders, err = s.orderRepo.ListByCreator(ctx, actorID, 0, 0)
	} else {
		orders, err = s.orderRepo.ListByStatuses(ctx, permission.ViewFor(role), 0, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("load orders for dashboard: %w", err)
	}

	dash := &RoleDashboard{
		Role:         role.String(),
		StatusCounts: make(map[workflow.Status]int),
		Priority:     []*entity.Order{},
	}

	actionable := make(map[workflow.Status]bool)
	for _, st := range permission.ActionableFor(role) {
		actionable[st] = true
	}

	var completed int
	var candidates []*entity.Order
	for _, order := range orders {
		dash.TotalOrders++
		dash.StatusCounts[order.Status]++
		if order.Status == workflow.StatusCompleted {
			completed++
			dash.RevenueCents += order.TotalCents
		}
		if actionable[order.Status] {
			candidates = append(candidates, order)
		}
	}

	if completed > 0 {
		dash.AverageOrderValueCents = dash.RevenueCents / int64(completed)
	}
	if dash.TotalOrders > 0 {
		dash.CompletionRate = float64(completed) / float64(dash.TotalOrders)
	}

	// highest value first, earliest created breaking ties
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].TotalCents != candidates[j].TotalCents {
			return candidates[i].TotalCents > candidates[j].TotalCents
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if len(candidates) > s.prioritySize {
		candidates = candidates[:s.prioritySize]
	}
	dash.Priority = append(dash.Priority, candidates...)

	return dash, nil
}
