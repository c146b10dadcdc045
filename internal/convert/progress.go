package convert

import "sync"

// aggregator merges per-slide progress from all in-flight files into one
// running (done, total) pair. Totals grow as files are opened and their
// declared slide counts become known; interleaved completions are fine.
type aggregator struct {
	mu    sync.Mutex
	done  int
	total int
}

func (a *aggregator) addTotal(n int) (done, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total += n
	return a.done, a.total
}

func (a *aggregator) advance() (done, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.done++
	return a.done, a.total
}

func (a *aggregator) snapshot() (done, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done, a.total
}
