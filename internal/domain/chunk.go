package domain

// Partition returns chunk index of items cut into contiguous chunks of size.
// A size below 1 means a single unbounded chunk. An index past the end yields
// an empty slice, which lets a fixed grid of runners have idle members.
// Items are never reordered.
func Partition[T any](items []T, size, index int) []T {
	if index < 0 {
		return []T{}
	}
	if size < 1 {
		if index == 0 {
			return items[:len(items):len(items)]
		}
		return []T{}
	}

	start := index * size
	if start >= len(items) || start/size != index {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end:end]
}

// ChunkCount is the number of non-empty chunks of size over n items.
func ChunkCount(n, size int) int {
	if n == 0 {
		return 0
	}
	if size < 1 {
		return 1
	}
	return (n + size - 1) / size
}
