package models

// Order lifecycle. Strictly linear; paid is terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusServed    = "served"
	OrderStatusPaid      = "paid"
)

var nextStatus = map[string]string{
	OrderStatusPending:   OrderStatusPreparing,
	OrderStatusPreparing: OrderStatusServed,
	OrderStatusServed:    OrderStatusPaid,
}

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusServed,
	OrderStatusPaid,
}

// NextStatus returns the single legal successor of status. ok is false for
// terminal or unknown statuses.
func NextStatus(status string) (next string, ok bool) {
	next, ok = nextStatus[status]
	return next, ok
}

func IsValidStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CanTransition reports whether to is the successor of from.
func CanTransition(from, to string) bool {
	next, ok := NextStatus(from)
	return ok && next == to
}

// IsActiveStatus -> still being worked on by the kitchen (pending + preparing)
func IsActiveStatus(status string) bool {
	return status == OrderStatusPending || status == OrderStatusPreparing
}
