package indicator

// RollingMax calculates the sliding-window maximum with a monotonic deque, O(n)
// Returns slice of length: len(values) - window + 1
func RollingMax(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}

	result := make([]float64, 0, len(values)-window+1)
	deque := make([]int, 0, window) // indices, values decreasing front to back

	for i, v := range values {
		// Evict the index that slid out of the window
		if len(deque) > 0 && deque[0] <= i-window {
			deque = deque[1:]
		}
		// Smaller entries can never be a window maximum again
		for len(deque) > 0 && values[deque[len(deque)-1]] <= v {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)

		if i >= window-1 {
			result = append(result, values[deque[0]])
		}
	}

	return result
}

// RollingMin calculates the sliding-window minimum with a monotonic deque, O(n)
// Returns slice of length: len(values) - window + 1
func RollingMin(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}

	result := make([]float64, 0, len(values)-window+1)
	deque := make([]int, 0, window) // indices, values increasing front to back

	for i, v := range values {
		if len(deque) > 0 && deque[0] <= i-window {
			deque = deque[1:]
		}
		for len(deque) > 0 && values[deque[len(deque)-1]] >= v {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)

		if i >= window-1 {
			result = append(result, values[deque[0]])
		}
	}

	return result
}
