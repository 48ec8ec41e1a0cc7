package pool

import "runtime"

// defaultPoolSize mirrors the original's hardware_concurrency() fallback.
func defaultPoolSize() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}
