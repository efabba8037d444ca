// Package ordering computes the per-record order updates needed to converge
// the server's stored sibling lists with a locally rearranged one. Active
// siblings of one parent always form a dense zero-based sequence; the planner
// emits the minimal set of updates that re-establishes it.
package ordering

// Sibling is one record of an ordered list: its id and the order value the
// server is last known to hold for it.
type Sibling struct {
	ID    string
	Order int
}

// Update is one (id, newOrder) pair whose persisted order must change.
type Update struct {
	ID    string
	Order int
}

// MoveUpdate is an Update that may also reassign the record's parent column.
// ColumnID is empty when the column is unchanged.
type MoveUpdate struct {
	ID       string
	Order    int
	ColumnID string
}

// Reorder takes siblings in their new desired sequence and returns an update
// for each record whose known order differs from its index. A list already in
// its target arrangement yields no updates.
func Reorder(desired []Sibling) []Update {
	var updates []Update
	for i, s := range desired {
		if s.Order != i {
			updates = append(updates, Update{ID: s.ID, Order: i})
		}
	}
	return updates
}

// MoveIndex returns a copy of list with the element at from reinserted at to.
// Out-of-range indexes are clamped.
func MoveIndex(list []Sibling, from, to int) []Sibling {
	moved := make([]Sibling, len(list))
	copy(moved, list)
	if len(moved) == 0 {
		return moved
	}
	from = clamp(from, len(moved)-1)
	to = clamp(to, len(moved)-1)
	if from == to {
		return moved
	}
	item := moved[from]
	moved = append(moved[:from], moved[from+1:]...)
	moved = append(moved[:to], append([]Sibling{item}, moved[to:]...)...)
	return moved
}

// PlanCardMove computes the updates for moving one card from its column into
// destColumnID at the given position. source and dest are the active card
// lists of both columns, taken from a single snapshot and sorted by order.
// The plan is: the moved card gets {destColumnID, position}; destination
// siblings at or past the insertion point shift up by one; source siblings
// past the card's old slot shift down by one.
func PlanCardMove(source, dest []Sibling, cardID, destColumnID string, position int) []MoveUpdate {
	oldOrder := -1
	for _, s := range source {
		if s.ID == cardID {
			oldOrder = s.Order
			break
		}
	}
	if oldOrder < 0 {
		return nil
	}
	position = clamp(position, len(dest))

	updates := []MoveUpdate{{ID: cardID, Order: position, ColumnID: destColumnID}}
	for _, s := range dest {
		if s.Order >= position {
			updates = append(updates, MoveUpdate{ID: s.ID, Order: s.Order + 1})
		}
	}
	for _, s := range source {
		if s.ID != cardID && s.Order > oldOrder {
			updates = append(updates, MoveUpdate{ID: s.ID, Order: s.Order - 1})
		}
	}
	return updates
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
