package board

import "github.com/yeremiapane/restaurant-orders/models"

// applyStatus returns a new list with orderID's status replaced. The input is
// never modified.
func applyStatus(orders []models.Order, orderID uint, status string) []models.Order {
	out := make([]models.Order, len(orders))
	copy(out, orders)
	for i := range out {
		if out[i].ID == orderID {
			out[i].Status = status
		}
	}
	return out
}

// revertStatus puts orderID back to from, but only while it still shows the
// optimistic status. Every other order is kept as it is now.
func revertStatus(orders []models.Order, orderID uint, from, optimistic string) []models.Order {
	out := make([]models.Order, len(orders))
	copy(out, orders)
	for i := range out {
		if out[i].ID == orderID && out[i].Status == optimistic {
			out[i].Status = from
		}
	}
	return out
}

func findOrder(orders []models.Order, orderID uint) (models.Order, bool) {
	for _, o := range orders {
		if o.ID == orderID {
			return o, true
		}
	}
	return models.Order{}, false
}

func filterByStatus(orders []models.Order, status string) []models.Order {
	out := make([]models.Order, 0)
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o.Clone())
		}
	}
	return out
}

func cloneOrders(orders []models.Order) []models.Order {
	if orders == nil {
		return nil
	}
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
