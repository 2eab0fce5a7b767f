// Movement legality and reachability.
//
// All functions here are pure with respect to the board and the query; the
// turn engine recomputes legal moves explicitly after every transition that
// can change them instead of deriving them lazily.

package main

import "github.com/zyedidia/generic/mapset"

// moveQuery captures everything movement legality depends on.
type moveQuery struct {
	pos         int
	prev        int // -1 when the player has not moved yet
	teleporting bool
	stack       [8]string // hex mode only
	stackIndex  int
}

// legalNextSteps returns the tile indexes the player may step onto next.
//
// Teleporting ignores adjacency entirely: any tile except the hub (and the
// tile currently occupied) is legal. Otherwise candidates are the direct
// neighbors minus the tile just came from; on the grid that is the whole
// answer, while hex movement is further gated by polling the cognitive
// stack: scanning forward from stackIndex+1, the first function with a
// matching neighbor becomes the sole target, and wildcards are always fair
// game.
func legalNextSteps(b *Board, q moveQuery) []int {
	if q.teleporting {
		out := make([]int, 0, len(b.Tiles)-2)
		for i := range b.Tiles {
			if b.IsHub(i) || i == q.pos {
				continue
			}
			out = append(out, i)
		}
		return out
	}

	neighbors := b.neighborIndexes(q.pos)
	candidates := neighbors[:0:0]
	for _, n := range neighbors {
		if n == q.prev {
			continue
		}
		candidates = append(candidates, n)
	}

	if b.Mode != ModeJung8 {
		return candidates
	}

	target := ""
poll:
	for i := 1; i <= len(q.stack); i++ {
		f := q.stack[(q.stackIndex+i)%len(q.stack)]
		for _, n := range candidates {
			if b.Tiles[n].FunctionID == f {
				target = f
				break poll
			}
		}
	}

	out := candidates[:0:0]
	for _, n := range candidates {
		f := b.Tiles[n].FunctionID
		if f == wildcardFunction || (target != "" && f == target) {
			out = append(out, n)
		}
	}
	return out
}

// pathNode tracks the simulated movement state during expansion. Hex stack
// advancement must be simulated too, or deeper levels would poll against a
// stale stack index.
type pathNode struct {
	pos        int
	prev       int
	stackIndex int
}

// reachableInSteps expands legalNextSteps breadth-first for exactly the
// given number of hops and returns the tiles at that depth. An empty
// frontier ends expansion early; that is a dead end, not an error.
func reachableInSteps(b *Board, q moveQuery, steps int) []int {
	frontier := mapset.New[pathNode]()
	frontier.Put(pathNode{pos: q.pos, prev: q.prev, stackIndex: q.stackIndex})

	for i := 0; i < steps; i++ {
		next := mapset.New[pathNode]()
		frontier.Each(func(n pathNode) {
			moves := legalNextSteps(b, moveQuery{
				pos:         n.pos,
				prev:        n.prev,
				teleporting: q.teleporting && i == 0,
				stack:       q.stack,
				stackIndex:  n.stackIndex,
			})
			for _, m := range moves {
				si := n.stackIndex
				if b.Mode == ModeJung8 && !b.isWildcard(m) {
					si = advanceStack(q.stack, si, b.Tiles[m].FunctionID)
				}
				next.Put(pathNode{pos: m, prev: n.pos, stackIndex: si})
			}
		})
		frontier = next
		if frontier.Size() == 0 {
			break
		}
	}

	seen := mapset.New[int]()
	out := make([]int, 0, frontier.Size())
	frontier.Each(func(n pathNode) {
		if !seen.Has(n.pos) {
			seen.Put(n.pos)
			out = append(out, n.pos)
		}
	})
	return out
}
