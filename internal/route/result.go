package route

import "github.com/cosentry/egress/internal/hazard"

// Reason classifies a failed route query. Planner failures are structured
// results, never errors: nothing in a route query is fatal.
type Reason string

const (
	// ReasonInvalidEndpoint means the start or goal is outside the grid or a wall.
	ReasonInvalidEndpoint Reason = "INVALID_ENDPOINT"
	// ReasonUnreachable means the search frontier emptied before reaching the goal.
	ReasonUnreachable Reason = "UNREACHABLE"
	// ReasonNoExitReachable means no designated exit yielded a successful path.
	ReasonNoExitReachable Reason = "NO_EXIT_REACHABLE"
)

// Result is the outcome of a route query. On success Cells runs from start to
// goal inclusive and the aggregate statistics are populated; on failure only
// Reason is set.
type Result struct {
	Success bool   `json:"success"`
	Reason  Reason `json:"reason,omitempty"`

	Cells []hazard.Cell `json:"cells,omitempty"`

	// Length is the number of cells on the path, start and goal included.
	Length int `json:"length"`
	// AverageHazard is the mean hazard over every cell on the path.
	AverageHazard float64 `json:"averageHazard"`
	// MaxHazard is the highest hazard encountered on the path.
	MaxHazard float64 `json:"maxHazard"`
	// EstimatedTraversalSeconds is Length multiplied by the planner's
	// seconds-per-cell walking estimate.
	EstimatedTraversalSeconds float64 `json:"estimatedTraversalSeconds"`
}

func failure(reason Reason) Result {
	return Result{Success: false, Reason: reason}
}
