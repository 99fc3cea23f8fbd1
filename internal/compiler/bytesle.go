package compiler

// putU64LE and putU64BE write v into buf (which must be at least 8 bytes
// long) in the given byte order. The sink hasher mixes parameter indices
// and relative offsets in little-endian order to match the rest of the
// compiler's internal hash mixing; on-disk formats elsewhere in the
// system use big-endian and are unrelated to this choice.
func putU64LE(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
}
