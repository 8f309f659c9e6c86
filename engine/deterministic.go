package engine

import "sync"

// The guest sees a frozen wall clock so repeated runs of the same
// module and input produce identical output.
const frozenWalltimeSec = 946684800 // 2000-01-01T00:00:00Z

func frozenWalltime() (sec int64, nsec int32) {
	return frozenWalltimeSec, 0
}

// stepClock is a monotonic clock that advances a fixed step per read
// instead of tracking host time. Sleeps advance it by the requested
// duration so guests that poll a deadline still make progress.
type stepClock struct {
	mu  sync.Mutex
	now int64
}

const nanotimeStep = 1000 // 1us per observation

func (c *stepClock) nanotime() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += nanotimeStep
	return c.now
}

func (c *stepClock) nanosleep(ns int64) {
	if ns <= 0 {
		return
	}
	c.mu.Lock()
	c.now += ns
	c.mu.Unlock()
}

// randSource feeds the guest's random imports from a seeded xorshift
// generator. The stream is fixed across runs.
type randSource struct {
	state uint64
}

const randSeed = 0x9E3779B97F4A7C15

func newRandSource() *randSource {
	return &randSource{state: randSeed}
}

func (r *randSource) Read(p []byte) (int, error) {
	for i := range p {
		r.state ^= r.state << 13
		r.state ^= r.state >> 7
		r.state ^= r.state << 17
		p[i] = byte(r.state)
	}
	return len(p), nil
}
