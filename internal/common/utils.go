package common

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used to remove passphrases from memory once they are no longer needed.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// CloneBytes returns an independent copy of b, or nil when b is nil.
func CloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
