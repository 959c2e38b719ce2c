package domain

import "fmt"

// BatchPolicy names the commit discipline for one provider's batch of writes.
type BatchPolicy int

const (
	// BestEffort commits row by row. A collision aborts the remainder of the
	// batch but rows committed before the failure point stay committed, and
	// the result reports how many landed.
	BestEffort BatchPolicy = iota
	// AllOrNothing wraps the batch in a single transaction; any failure rolls
	// the whole batch back.
	AllOrNothing
)

func (p BatchPolicy) String() string {
	switch p {
	case BestEffort:
		return "best_effort"
	case AllOrNothing:
		return "all_or_nothing"
	default:
		return fmt.Sprintf("BatchPolicy(%d)", int(p))
	}
}

// ParseBatchPolicy maps a configuration string to a policy. The empty string
// selects BestEffort.
func ParseBatchPolicy(s string) (BatchPolicy, error) {
	switch s {
	case "", "best_effort":
		return BestEffort, nil
	case "all_or_nothing":
		return AllOrNothing, nil
	default:
		return BestEffort, fmt.Errorf("unknown batch policy %q", s)
	}
}

// BatchResult counts the effect of one SaveBatch call.
type BatchResult struct {
	Inserted int
	Updated  int
}

// Imported is the number of rows written, whether fresh or updated in place.
func (r BatchResult) Imported() int { return r.Inserted + r.Updated }
