package common

import "unsafe"

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// WorkGroupCount returns how many work groups of the given size are needed to cover extent,
// rounding up so the final partial group still covers the remaining texels.
//
// Parameters:
//   - extent: the number of invocations required along one axis
//   - groupSize: the work group size along the same axis
//
// Returns:
//   - uint32: ceil(extent / groupSize), or 0 when either argument is zero
func WorkGroupCount(extent, groupSize uint32) uint32 {
	if extent == 0 || groupSize == 0 {
		return 0
	}
	return (extent + groupSize - 1) / groupSize
}

// Clamp limits v to the closed range [lo, hi].
func Clamp[T ~float32 | ~float64 | ~int | ~int32 | ~uint32](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AlignUp rounds v up to the next multiple of align. Align must be a power of two.
func AlignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
