package prototable

// bitset is a growable bitmap indexed by instance ID. Each bit records
// whether the owning overlay holds an override for that instance. Growing the
// bitset never zeroes words that are already populated.
type bitset struct {
	words []uint64
}

// wordBit splits an instance ID into its word index and bit mask.
func wordBit(id int) (int, uint64) {
	i := id >> 6 // (id / 64) to find the uint64 index
	o := id & 63 // (id % 64) to find the bit offset
	return i, uint64(1) << uint64(o)
}

// grow ensures the bitset has capacity for the given instance ID, preserving
// all previously set bits. Words re-exposed from spare capacity are zeroed;
// they may hold stale bits from before a reset.
func (b *bitset) grow(id int) {
	w, _ := wordBit(id)
	if w < len(b.words) {
		return
	}
	if w < cap(b.words) {
		n := len(b.words)
		b.words = b.words[:w+1]
		for i := n; i <= w; i++ {
			b.words[i] = 0
		}
		return
	}
	nw := make([]uint64, w+1, max(2*cap(b.words), w+1))
	copy(nw, b.words)
	b.words = nw
}

// set enables the bit for the given instance ID, growing as needed.
func (b *bitset) set(id int) {
	b.grow(id)
	w, m := wordBit(id)
	b.words[w] |= m
}

// unset disables the bit for the given instance ID.
func (b *bitset) unset(id int) {
	w, m := wordBit(id)
	if w < len(b.words) {
		b.words[w] &= ^m
	}
}

// test reports whether the bit for the given instance ID is set. IDs beyond
// the current capacity read as unset.
func (b *bitset) test(id int) bool {
	w, m := wordBit(id)
	if w >= len(b.words) {
		return false
	}
	return (b.words[w] & m) != 0
}

// reset clears every bit and drops capacity.
func (b *bitset) reset() {
	b.words = b.words[:0]
}
