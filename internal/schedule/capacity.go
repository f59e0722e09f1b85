package schedule

// Fits reports whether requested guests fit a resource of the given
// capacity. Callers reject non-positive guest counts before asking.
func Fits(requested, capacity int) bool {
	return requested <= capacity
}

// TotalCapacity sums capacities, used when a whole venue is reserved and
// the guests are spread over every free table.
func TotalCapacity(capacities ...int) int {
	total := 0
	for _, c := range capacities {
		total += c
	}
	return total
}
