package wasmwriter

// appendVarU appends x as an unsigned LEB128, the encoding the binary
// format uses for every index and memory-access immediate (spec §6
// "memory immediates: always a pair of unsigned LEBs").
func appendVarU(b []byte, x uint64) []byte {
	for {
		c := byte(x & 0x7f)
		x >>= 7
		if x != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if x == 0 {
			return b
		}
	}
}

// appendVarS appends x as a signed LEB128, the encoding constants use
// (spec §4.5 "signed LEB-32 for i32, signed LEB-64 for i64"). This is
// the two's-complement sign-extending LEB128 the binary format
// defines, not protobuf's zigzag variant — the two are easy to
// conflate but produce different bytes for negative values.
func appendVarS(b []byte, x int64) []byte {
	more := true
	for more {
		c := byte(x & 0x7f)
		x >>= 7
		signBitSet := c&0x40 != 0
		if (x == 0 && !signBitSet) || (x == -1 && signBitSet) {
			more = false
		} else {
			c |= 0x80
		}
		b = append(b, c)
	}
	return b
}

// log2Align converts an alignment byte count (or 0, meaning "use the
// natural alignment of bytes") to the log2 value the binary format's
// memory-access immediate encodes (spec §4.5/§6).
func log2Align(align, bytes int) uint64 {
	n := align
	if n == 0 {
		n = bytes
	}
	log := 0
	for n > 1 {
		n >>= 1
		log++
	}
	return uint64(log)
}
