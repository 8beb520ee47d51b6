package organ

import "github.com/leandrodaf/relayorgan/sdk/contracts"

// stateStore holds the intended relay mask of every board. Bit i of a
// mask is set iff relay i should be energized.
type stateStore []uint8

func newStateStore(boards int) stateStore {
	return make(stateStore, boards)
}

func (s stateStore) clear() {
	for i := range s {
		s[i] = 0
	}
}

func (s stateStore) set(board int, mask uint8) {
	s[board] = mask
}

// update applies a mapped note event according to the policy.
func (s stateStore) update(board int, bit uint, kind contracts.EventKind, policy contracts.TogglePolicy) {
	if policy == contracts.Toggle {
		s[board] ^= 1 << bit
		return
	}
	if kind == contracts.KindNoteOn {
		s[board] |= 1 << bit
	} else {
		s[board] &^= 1 << bit
	}
}

func (s stateStore) snapshot() []uint8 {
	out := make([]uint8, len(s))
	copy(out, s)
	return out
}
