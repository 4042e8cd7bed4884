package util

// CloneSlice returns a copy of src with cloneSize elements.
// src length is used as the clone size if cloneSize is 0; a larger cloneSize
// zero-fills the tail, a smaller one truncates.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}
