package form

// arena keeps group rows in insertion order. Removal tombstones a slot so
// positional indices of live rows stay cheap to compute and ids are never
// recycled.
type arena struct {
	slots []slot
}

type slot struct {
	row  Row
	dead bool
}

func (a *arena) push(r Row) {
	a.slots = append(a.slots, slot{row: r})
}

func (a *arena) len() int {
	n := 0
	for _, s := range a.slots {
		if !s.dead {
			n++
		}
	}
	return n
}

func (a *arena) live() []Row {
	out := make([]Row, 0, len(a.slots))
	for _, s := range a.slots {
		if !s.dead {
			out = append(out, s.row)
		}
	}
	return out
}

// at returns the live row at index, or nil. The returned row shares its
// Values map with the arena.
func (a *arena) at(index int) *Row {
	if index < 0 {
		return nil
	}
	n := 0
	for i := range a.slots {
		if a.slots[i].dead {
			continue
		}
		if n == index {
			return &a.slots[i].row
		}
		n++
	}
	return nil
}

func (a *arena) remove(index int) {
	n := 0
	for i := range a.slots {
		if a.slots[i].dead {
			continue
		}
		if n == index {
			a.slots[i].dead = true
			a.slots[i].row.Values = nil
			return
		}
		n++
	}
}

func (a *arena) clearOthers(keepID, field string) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.dead || s.row.ID == keepID {
			continue
		}
		s.row.Values[field] = "false"
	}
}
