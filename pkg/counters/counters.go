// Package counters holds the tallies a registration run reports and breaks on.
package counters

import "fmt"

// Counters is a process-lifetime tally. Only the orchestrator increments it;
// everything else receives a copy.
type Counters struct {
	Checks    int `json:"checks"`
	Logins    int `json:"logins"`
	Attempts  int `json:"attempts"`
	Errors    int `json:"errors"`
	Successes int `json:"successes"`
}

// Field names a single counter
type Field string

const (
	FieldChecks    Field = "checks"
	FieldLogins    Field = "logins"
	FieldAttempts  Field = "attempts"
	FieldErrors    Field = "errors"
	FieldSuccesses Field = "successes"
)

// Inc increments one counter and returns its new value.
func (c *Counters) Inc(f Field) int {
	switch f {
	case FieldChecks:
		c.Checks++
		return c.Checks
	case FieldLogins:
		c.Logins++
		return c.Logins
	case FieldAttempts:
		c.Attempts++
		return c.Attempts
	case FieldErrors:
		c.Errors++
		return c.Errors
	case FieldSuccesses:
		c.Successes++
		return c.Successes
	}
	panic(fmt.Sprintf("counters: unknown field %q", f))
}

func (c Counters) String() string {
	return fmt.Sprintf("checks=%d logins=%d attempts=%d errors=%d successes=%d",
		c.Checks, c.Logins, c.Attempts, c.Errors, c.Successes)
}
