package service

import (
	"slices"

	"posadmin/backend/internal/domain"
)

// annotateInventory sorts events chronologically and sets each event's
// running inventory: everything purchased minus everything sold for that
// product up to and including the event's timestamp. Events sharing a
// timestamp see the same figure.
func annotateInventory(events []domain.LedgerEvent) []domain.LedgerEvent {
	slices.SortStableFunc(events, domain.CompareLedgerEvents)

	onHand := make(map[int64]int, 32)
	for start := 0; start < len(events); {
		end := start + 1
		for end < len(events) && events[end].Date.Equal(events[start].Date) {
			end++
		}

		for _, e := range events[start:end] {
			onHand[e.ProductID] += signedQuantity(e)
		}
		for i := start; i < end; i++ {
			events[i].Inventory = onHand[events[i].ProductID]
		}
		start = end
	}
	return events
}

func signedQuantity(e domain.LedgerEvent) int {
	if e.Type == domain.LedgerSale {
		return -e.Quantity
	}
	return e.Quantity
}

// onHandByProduct folds events into the current running inventory.
func onHandByProduct(events []domain.LedgerEvent) map[int64]int {
	onHand := make(map[int64]int, 64)
	for _, e := range events {
		onHand[e.ProductID] += signedQuantity(e)
	}
	return onHand
}
