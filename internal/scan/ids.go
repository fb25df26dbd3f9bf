package scan

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// idPattern matches SCN-YYMMDD-NNN. Older demo ids with an eight digit date
// never match and so never feed the counter.
var idPattern = regexp.MustCompile(`^SCN-(\d{6})-(\d{3,})$`)

// dayCounter hands out per-day sequence numbers. It is only touched with the
// manager lock held.
type dayCounter struct {
	last map[string]int
}

func newDayCounter() *dayCounter {
	return &dayCounter{last: make(map[string]int)}
}

// observe records an existing id so later allocations never reuse it.
func (c *dayCounter) observe(id string) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return
	}
	if seq > c.last[m[1]] {
		c.last[m[1]] = seq
	}
}

// next allocates the id for a scan created at t.
func (c *dayCounter) next(t time.Time) string {
	day := t.Format("060102")
	c.last[day]++
	return fmt.Sprintf("SCN-%s-%03d", day, c.last[day])
}
