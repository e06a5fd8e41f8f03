package holderselect

import (
	"slices"

	"github.com/dreamware/immuvault/internal/xorspace"
)

// ReplicaCount is the default number of holders a chunk should have.
const ReplicaCount = 3

// Select returns up to ReplicaCount peers that should hold a copy of
// the chunk at address, preferring adults closest to address by XOR
// distance, excluding anyone in fullAdults, and padding with the
// closest elders if there are not enough eligible adults.
func Select(adults, elders, fullAdults []xorspace.Name, address xorspace.Name) []xorspace.Name {
	return SelectN(adults, elders, fullAdults, address, ReplicaCount)
}

// SelectN is Select with an explicit replica count, for deployments
// that override the default through configuration.
func SelectN(adults, elders, fullAdults []xorspace.Name, address xorspace.Name, count int) []xorspace.Name {
	eligible := make([]xorspace.Name, 0, len(adults))
	for _, a := range adults {
		if !slices.Contains(fullAdults, a) {
			eligible = append(eligible, a)
		}
	}
	xorspace.SortByDistance(eligible, address)

	if len(eligible) >= count {
		return eligible[:count]
	}

	result := append([]xorspace.Name(nil), eligible...)
	remaining := count - len(result)

	sortedElders := append([]xorspace.Name(nil), elders...)
	xorspace.SortByDistance(sortedElders, address)

	for _, e := range sortedElders {
		if remaining == 0 {
			break
		}
		if slices.Contains(result, e) {
			continue
		}
		result = append(result, e)
		remaining--
	}
	return result
}
