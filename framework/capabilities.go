package framework

import "golang.org/x/exp/slices"

// Capabilities is a list of strings representing optional behaviors of a test module. The
// modules in this repository define their own names, for instance gputests.CapabilityHAL.
type Capabilities []string

// Has returns true if the specified string appears in the list.
func (cs Capabilities) Has(name string) bool {
	return slices.Contains(cs, name)
}

// Missing returns the names from the specified list that do not appear in this one, in order.
func (cs Capabilities) Missing(names ...string) []string {
	var ret []string
	for _, n := range names {
		if !cs.Has(n) {
			ret = append(ret, n)
		}
	}
	return ret
}
