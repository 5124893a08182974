package lockup

import "fmt"

// StaticPoolRegistry serves a fixed list of pool addresses, typically sourced
// from daemon configuration.
type StaticPoolRegistry struct {
	pools [][20]byte
}

// NewStaticPoolRegistry copies the provided pool list.
func NewStaticPoolRegistry(pools [][20]byte) *StaticPoolRegistry {
	copied := make([][20]byte, len(pools))
	copy(copied, pools)
	return &StaticPoolRegistry{pools: copied}
}

// Count returns the number of registered pools.
func (r *StaticPoolRegistry) Count() (int, error) {
	if r == nil {
		return 0, nil
	}
	return len(r.pools), nil
}

// PoolAt returns the pool address at index i.
func (r *StaticPoolRegistry) PoolAt(i int) ([20]byte, error) {
	if r == nil || i < 0 || i >= len(r.pools) {
		return [20]byte{}, fmt.Errorf("lockup engine: pool index %d out of range", i)
	}
	return r.pools[i], nil
}
