package sensorhub

// Resolve finds the closest supported rate at or above requested. It returns
// false when every supported rate is below requested.
func Resolve(supported []uint32, requested uint32) (best uint32, ok bool) {
	for _, r := range supported {
		if r < requested {
			continue
		}
		if !ok || r < best {
			best = r
			ok = true
		}
	}
	return
}

func maxRate(supported []uint32) (max uint32) {
	for _, r := range supported {
		if r > max {
			max = r
		}
	}
	return
}
