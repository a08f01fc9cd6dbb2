package taxonomy

import (
	"errors"
	"fmt"

	"maktaba/internal/types"
)

// ErrCycle reports a parent chain that loops back on itself. The upstream
// sync is supposed to guarantee an acyclic parent relation; when it does
// not, failing loudly beats overflowing the stack.
var ErrCycle = errors.New("genre hierarchy contains a cycle")

// Hierarchy is the parent/child structure derived from one snapshot of
// genre records: direct children, the transitive descendant closure and a
// post-order (children before parents) over all genres.
type Hierarchy struct {
	children    map[string][]string
	descendants map[string]map[string]struct{}
	postOrder   []string
}

const (
	colorUnvisited = iota
	colorInProgress
	colorDone
)

// BuildHierarchy derives the structure from a flat record set. A parent
// reference to a nonexistent id makes the record a root, not an error.
// A cyclic parent chain yields ErrCycle.
func BuildHierarchy(all []*types.AdvancedGenre) (*Hierarchy, error) {
	exists := make(map[string]struct{}, len(all))
	for _, g := range all {
		exists[g.Id] = struct{}{}
	}

	children := make(map[string][]string, len(all))
	for _, g := range all {
		if g.ParentId == "" {
			continue
		}

		if _, ok := exists[g.ParentId]; !ok {
			// Dangling parent: the record acts as a root.
			continue
		}

		children[g.ParentId] = append(children[g.ParentId], g.Id)
	}

	h := &Hierarchy{
		children:    children,
		descendants: make(map[string]map[string]struct{}, len(all)),
		postOrder:   make([]string, 0, len(all)),
	}

	color := make(map[string]int, len(all))

	type frame struct {
		id   string
		next int
	}

	for _, g := range all {
		if color[g.Id] != colorUnvisited {
			continue
		}

		color[g.Id] = colorInProgress
		stack := []frame{{id: g.Id}}

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			kids := children[f.id]

			if f.next < len(kids) {
				child := kids[f.next]
				f.next++

				switch color[child] {
				case colorInProgress:
					return nil, fmt.Errorf("%w: %s is both ancestor and descendant of %s", ErrCycle, child, f.id)
				case colorUnvisited:
					color[child] = colorInProgress
					stack = append(stack, frame{id: child})
				}

				continue
			}

			ds := make(map[string]struct{})
			for _, child := range kids {
				ds[child] = struct{}{}
				for d := range h.descendants[child] {
					ds[d] = struct{}{}
				}
			}

			h.descendants[f.id] = ds
			h.postOrder = append(h.postOrder, f.id)
			color[f.id] = colorDone
			stack = stack[:len(stack)-1]
		}
	}

	return h, nil
}

func (h *Hierarchy) Children(id string) []string {
	return h.children[id]
}

// Descendants excludes the genre itself. Callers must not mutate the
// returned set.
func (h *Hierarchy) Descendants(id string) map[string]struct{} {
	return h.descendants[id]
}

// IDsWithDescendants returns the union, over the input ids, of each id
// itself plus its full descendant set, deduplicated. Unknown ids pass
// through unchanged so filters on them still match nothing downstream.
func (h *Hierarchy) IDsWithDescendants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	ret := make([]string, 0, len(ids))

	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ret = append(ret, id)
		}
	}

	for _, id := range ids {
		add(id)
		for d := range h.descendants[id] {
			add(d)
		}
	}

	return ret
}
