package agent

// Reward compares two consecutive portfolio values: +1 if the value rose,
// -1 if it fell, 0 if unchanged or if either value is absent.
func Reward(last, current *float64) int {
	if last == nil || current == nil {
		return 0
	}
	switch {
	case *current > *last:
		return 1
	case *current < *last:
		return -1
	default:
		return 0
	}
}
