package speeddial

import "math/bits"

// Occupancy records which grid slots of a page hold a link, one bit per position.
type Occupancy uint16

// OccupancyOf builds the occupancy set for the given links. Positions outside
// the grid are ignored.
func OccupancyOf(links []Link) Occupancy {
	var occ Occupancy
	for _, link := range links {
		occ = occ.With(link.Position)
	}
	return occ
}

// With returns the set with position marked occupied.
func (o Occupancy) With(position int) Occupancy {
	if !validPosition(position) {
		return o
	}
	return o | 1<<uint(position)
}

// Without returns the set with position marked empty.
func (o Occupancy) Without(position int) Occupancy {
	if !validPosition(position) {
		return o
	}
	return o &^ (1 << uint(position))
}

// Occupied reports whether position holds a link.
func (o Occupancy) Occupied(position int) bool {
	if !validPosition(position) {
		return false
	}
	return o&(1<<uint(position)) != 0
}

// Count returns the number of occupied slots.
func (o Occupancy) Count() int {
	return bits.OnesCount16(uint16(o))
}

// Full reports whether every slot is occupied.
func (o Occupancy) Full() bool {
	return o.Count() == SlotsPerPage
}

// LowestFree returns the first empty slot in row-major order.
func (o Occupancy) LowestFree() (int, bool) {
	if o.Full() {
		return 0, false
	}
	return bits.TrailingZeros16(^uint16(o)), true
}

func validPosition(position int) bool {
	return position >= 0 && position < SlotsPerPage
}
