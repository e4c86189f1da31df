package choice

// Counters records model invocations for one worker. They are never shared
// between goroutines; the scheduler merges them after all workers join.
type Counters struct {
	Calls   [IDCount]int64
	Invalid [IDCount]int64
}

// Record counts one call and its outcome.
func (c *Counters) Record(id ID, status Status) {
	c.Calls[id]++
	if status == Invalid {
		c.Invalid[id]++
	}
}

// Merge adds other into c.
func (c *Counters) Merge(other *Counters) {
	for i := range c.Calls {
		c.Calls[i] += other.Calls[i]
		c.Invalid[i] += other.Invalid[i]
	}
}

// TotalCalls returns the number of model calls.
func (c *Counters) TotalCalls() int64 {
	var n int64
	for _, v := range c.Calls {
		n += v
	}
	return n
}
