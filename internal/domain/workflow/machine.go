package workflow

import "fmt"

// Rule describes one edge of the lifecycle: from which statuses an action may
// fire, where it lands, and what input it demands. Actions that do not change
// status (amend) have To equal to every member of From.
type Rule struct {
	From           []Status
	To             Status
	RequiresReason bool
	// HistoryAction is the tag recorded in the history ledger for this edge
	HistoryAction string
}

// transitions is the single source of truth for the lifecycle. The cancel rule
// spans every non-terminal status; role-specific narrowing (sales may only
// cancel own orders still in their hands) is enforced by the engine on top of
// the permission gate.
var transitions = map[Action]Rule{
	ActionApprove: {
		From:          []Status{StatusPending},
		To:            StatusApproved,
		HistoryAction: "order_approved",
	},
	ActionReject: {
		From:           []Status{StatusPending},
		To:             StatusRejected,
		RequiresReason: true,
		HistoryAction:  "order_rejected",
	},
	ActionRequestEdit: {
		From:           []Status{StatusPending},
		To:             StatusEditRequested,
		RequiresReason: true,
		HistoryAction:  "edit_requested",
	},
	ActionResubmit: {
		From:          []Status{StatusEditRequested, StatusFailed},
		To:            StatusPending,
		HistoryAction: "order_resubmitted",
	},
	ActionCancel: {
		From:          NonTerminalStatuses(),
		To:            StatusCancelled,
		HistoryAction: "order_cancelled",
	},
	ActionWarehouseConfirm: {
		From:          []Status{StatusApproved},
		To:            StatusWarehouseConfirmed,
		HistoryAction: "warehouse_confirmed",
	},
	// Warehouse rejection routes the order back to sales for editing rather
	// than parking it in a warehouse_rejected resting status. The rejection
	// itself survives as the history action tag and the reason field.
	ActionWarehouseReject: {
		From:           []Status{StatusApproved},
		To:             StatusEditRequested,
		RequiresReason: true,
		HistoryAction:  "warehouse_rejected",
	},
	ActionShip: {
		From:          []Status{StatusWarehouseConfirmed},
		To:            StatusShipped,
		HistoryAction: "order_shipped",
	},
	ActionComplete: {
		From:          []Status{StatusShipped},
		To:            StatusCompleted,
		HistoryAction: "order_completed",
	},
	ActionPartialComplete: {
		From:          []Status{StatusShipped},
		To:            StatusPartialComplete,
		HistoryAction: "order_partial_completed",
	},
	ActionFail: {
		From:           []Status{StatusShipped},
		To:             StatusFailed,
		RequiresReason: true,
		HistoryAction:  "order_failed",
	},
	ActionAmend: {
		From:          []Status{StatusPartialComplete},
		To:            StatusPartialComplete,
		HistoryAction: "order_amended",
	},
}

// RuleFor returns the transition rule for an action
func RuleFor(action Action) (Rule, error) {
	rule, ok := transitions[action]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return rule, nil
}

// CanFire returns true if the action is permitted from the given status
func CanFire(current Status, action Action) bool {
	rule, ok := transitions[action]
	if !ok {
		return false
	}
	for _, from := range rule.From {
		if from == current {
			return true
		}
	}
	return false
}

// Fire validates the action against the current status and returns the
// resulting status. Required-input checks (reason) belong to the caller, which
// knows the payload; Fire only answers the state question.
func Fire(current Status, action Action) (Status, error) {
	rule, err := RuleFor(action)
	if err != nil {
		return current, err
	}
	if !CanFire(current, action) {
		return current, fmt.Errorf("%w: cannot %s an order in status %s",
			ErrInvalidTransition, action, current)
	}
	if action == ActionAmend {
		// amend never moves the order
		return current, nil
	}
	return rule.To, nil
}

// PermittedActions returns every action that can fire from the given status
func PermittedActions(current Status) []Action {
	var out []Action
	for action := range transitions {
		if CanFire(current, action) {
			out = append(out, action)
		}
	}
	return out
}
