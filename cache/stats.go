package cache

// Stats reports cache performance counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}
