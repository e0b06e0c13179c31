package domain

import "cmp"

// CompareLedgerEvents orders events chronologically; purchases sort before
// sales recorded at the same instant.
func CompareLedgerEvents(a LedgerEvent, b LedgerEvent) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if a.Type != b.Type {
		if a.Type == LedgerPurchase {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Reference, b.Reference); c != 0 {
		return c
	}
	return cmp.Compare(a.ProductID, b.ProductID)
}
