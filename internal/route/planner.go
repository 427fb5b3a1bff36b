// Package route computes minimum-hazard-cost paths over a hazard.Field.
//
// Safety is encoded entirely in the traversal cost function: each step costs
// 1 plus a heavily convex penalty on the destination cell's CO concentration,
// so the search trades extra distance for cleaner air. Movement is
// 8-directional; the Manhattan heuristic under-counts diagonal-heavy paths
// and is therefore not strictly admissible, so returned routes are not
// guaranteed globally cost-optimal. That behaviour is deliberate: correcting
// the heuristic changes observable route choices.
package route

import (
	"container/heap"
	"math"
	"sort"

	"github.com/cosentry/egress/internal/hazard"
)

// Hazard penalty step thresholds (ppm) and their additive costs. These exact
// values determine every route choice the planner makes.
const (
	penaltySevereAbove   = 50.0
	penaltySevereCost    = 1000.0
	penaltyHighAbove     = 35.0
	penaltyHighCost      = 100.0
	penaltyElevatedAbove = 25.0
	penaltyElevatedCost  = 20.0
	penaltyMildAbove     = 15.0
	penaltyMildCost      = 5.0
	penaltyLowFactor     = 0.1 // below the mild threshold: 0.1 per ppm
)

// neighborOffsets is the fixed expansion order: N, NE, E, SE, S, SW, W, NW.
// Order does not affect correctness but pins down tie-breaking so identical
// fields always produce identical routes.
var neighborOffsets = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Planner computes hazard-aware routes over a borrowed field. It never
// mutates the field.
type Planner struct {
	field          *hazard.Field
	secondsPerCell float64
}

// NewPlanner wires a planner to the given field. secondsPerCell is the fixed
// per-cell walking time used for traversal estimates; values <= 0 fall back
// to 1.5s.
func NewPlanner(field *hazard.Field, secondsPerCell float64) *Planner {
	if secondsPerCell <= 0 {
		secondsPerCell = 1.5
	}
	return &Planner{field: field, secondsPerCell: secondsPerCell}
}

// cost returns the cost of stepping into a cell: +Inf for walls, otherwise
// 1 + penalty(hazard) per the step table above.
func cost(c hazard.Cell) float64 {
	if c.IsWall {
		return math.Inf(1)
	}
	h := c.Hazard
	switch {
	case h > penaltySevereAbove:
		return 1 + penaltySevereCost
	case h > penaltyHighAbove:
		return 1 + penaltyHighCost
	case h > penaltyElevatedAbove:
		return 1 + penaltyElevatedCost
	case h > penaltyMildAbove:
		return 1 + penaltyMildCost
	default:
		return 1 + penaltyLowFactor*h
	}
}

// heuristic is the Manhattan distance between two cells. See the package
// comment for why this is kept despite 8-directional movement.
func heuristic(ax, ay, bx, by int) float64 {
	return math.Abs(float64(ax-bx)) + math.Abs(float64(ay-by))
}

// FindPath runs a best-first search from (startX,startY) to (goalX,goalY).
// Nodes are finalised in order of lowest f = g + heuristic, ties broken by
// earliest discovery. A closed node is never revisited; a frontier node is
// re-queued only when a strictly smaller g is found. Fails with
// INVALID_ENDPOINT when either endpoint is out of bounds or a wall and with
// UNREACHABLE when the frontier empties first.
func (p *Planner) FindPath(startX, startY, goalX, goalY int) Result {
	start, ok := p.field.At(startX, startY)
	if !ok || start.IsWall {
		return failure(ReasonInvalidEndpoint)
	}
	goal, ok := p.field.At(goalX, goalY)
	if !ok || goal.IsWall {
		return failure(ReasonInvalidEndpoint)
	}

	width := p.field.Width()
	size := width * p.field.Height()

	g := make([]float64, size)
	for i := range g {
		g[i] = math.Inf(1)
	}
	prev := make([]int, size)
	for i := range prev {
		prev[i] = -1
	}
	closed := make([]bool, size)

	open := make(frontier, 0, 64)
	seq := 0
	g[start.ID] = 0
	heap.Push(&open, frontierNode{id: start.ID, f: heuristic(startX, startY, goalX, goalY), seq: seq})

	for open.Len() > 0 {
		node := heap.Pop(&open).(frontierNode)
		if closed[node.id] {
			continue // stale duplicate from a later improvement
		}
		if node.id == goal.ID {
			return p.reconstruct(prev, goal.ID)
		}
		closed[node.id] = true

		cx, cy := node.id%width, node.id/width
		for _, d := range neighborOffsets {
			nx, ny := cx+d[0], cy+d[1]
			nc, ok := p.field.At(nx, ny)
			if !ok || nc.IsWall || closed[nc.ID] {
				continue
			}
			tentative := g[node.id] + cost(nc)
			if tentative >= g[nc.ID] {
				continue
			}
			g[nc.ID] = tentative
			prev[nc.ID] = node.id
			seq++
			heap.Push(&open, frontierNode{
				id:  nc.ID,
				f:   tentative + heuristic(nx, ny, goalX, goalY),
				seq: seq,
			})
		}
	}

	return failure(ReasonUnreachable)
}

// reconstruct walks the predecessor chain back from the goal and computes the
// path's aggregate hazard statistics.
func (p *Planner) reconstruct(prev []int, goalID int) Result {
	width := p.field.Width()

	ids := []int{goalID}
	for id := prev[goalID]; id >= 0; id = prev[id] {
		ids = append(ids, id)
	}
	// Reverse into start..goal order.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	cells := make([]hazard.Cell, 0, len(ids))
	var sum, max float64
	for _, id := range ids {
		c, _ := p.field.At(id%width, id/width)
		cells = append(cells, c)
		sum += c.Hazard
		if c.Hazard > max {
			max = c.Hazard
		}
	}

	length := len(cells)
	return Result{
		Success:                   true,
		Cells:                     cells,
		Length:                    length,
		AverageHazard:             sum / float64(length),
		MaxHazard:                 max,
		EstimatedTraversalSeconds: float64(length) * p.secondsPerCell,
	}
}

// FindNearestExit routes from the start to every designated exit and returns
// the result minimising length + averageHazard. Fails with INVALID_ENDPOINT
// for a bad start and NO_EXIT_REACHABLE when no exit yields a path.
func (p *Planner) FindNearestExit(startX, startY int) Result {
	start, ok := p.field.At(startX, startY)
	if !ok || start.IsWall {
		return failure(ReasonInvalidEndpoint)
	}

	best := failure(ReasonNoExitReachable)
	bestScore := math.Inf(1)
	for _, exit := range p.field.Exits() {
		r := p.FindPath(startX, startY, exit.X, exit.Y)
		if !r.Success {
			continue
		}
		score := float64(r.Length) + r.AverageHazard
		if score < bestScore {
			best = r
			bestScore = score
		}
	}
	return best
}

// FindAlternativePaths computes a path to every exit, drops failures and
// returns up to k results ordered by ascending average hazard.
func (p *Planner) FindAlternativePaths(startX, startY, k int) []Result {
	if k <= 0 {
		return nil
	}

	results := make([]Result, 0, k)
	for _, exit := range p.field.Exits() {
		if r := p.FindPath(startX, startY, exit.X, exit.Y); r.Success {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AverageHazard < results[j].AverageHazard
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
