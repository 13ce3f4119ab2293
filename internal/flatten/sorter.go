package flatten

import (
	"sort"
)

// Sort orders occurrences by the canonical rules:
// 1. Completion: incomplete before complete
// 2. Instant (start, else end): earliest first, nil last
// 3. Scheme ID, item ID, occurrence index: lexical / ascending
//
// Notification and badge logic depend on rules 1 and 2.
func Sort(occ []Occurrence) {
	sort.SliceStable(occ, func(i, j int) bool {
		a, b := occ[i], occ[j]

		// 1. Completion
		if a.Complete() != b.Complete() {
			return !a.Complete()
		}

		// 2. Instant (earliest first, nil last)
		instA, instB := a.Instant(), b.Instant()
		if (instA == nil) != (instB == nil) {
			return instA != nil
		}
		if instA != nil && instB != nil && !instA.Equal(*instB) {
			return instA.Before(*instB)
		}

		// 3. Identity
		if a.SchemeID != b.SchemeID {
			return a.SchemeID < b.SchemeID
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.Index < b.Index
	})
}

// SortByInstant orders occurrences by instant only (nil last), ignoring
// completion. Ties keep identity order.
func SortByInstant(occ []Occurrence) {
	sort.SliceStable(occ, func(i, j int) bool {
		a, b := occ[i], occ[j]
		instA, instB := a.Instant(), b.Instant()
		if (instA == nil) != (instB == nil) {
			return instA != nil
		}
		if instA != nil && instB != nil && !instA.Equal(*instB) {
			return instA.Before(*instB)
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.Index < b.Index
	})
}
