package ontology

import (
	"context"
	"sort"
)

// parentsFunc returns the direct generalisations of a term: its superclasses
// and, for instances, its classes.
type parentsFunc func(ctx context.Context, term string) ([]string, error)

// ancestors returns every term reachable from start (start included) with
// its shortest distance.
func ancestors(ctx context.Context, start string, parents parentsFunc) (map[string]int, error) {
	dist := map[string]int{start: 0}
	queue := []string{start}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		ps, err := parents(ctx, cur)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			if _, seen := dist[p]; seen {
				continue
			}
			dist[p] = dist[cur] + 1
			queue = append(queue, p)
		}
	}
	return dist, nil
}

// reaches reports whether target is reachable from start.
func reaches(ctx context.Context, start, target string, parents parentsFunc) (bool, error) {
	if start == target {
		return true, nil
	}
	visited := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ps, err := parents(ctx, cur)
		if err != nil {
			return false, err
		}
		for _, p := range ps {
			if p == target {
				return true, nil
			}
			if !visited[p] {
				visited[p] = true
				stack = append(stack, p)
			}
		}
	}
	return false, nil
}

// depth is the longest chain from class to a term without parents.
func depth(ctx context.Context, class string, parents parentsFunc) (int, error) {
	memo := make(map[string]int)
	onPath := make(map[string]bool)
	var walk func(string) (int, error)
	walk = func(c string) (int, error) {
		if d, ok := memo[c]; ok {
			return d, nil
		}
		if onPath[c] {
			return 0, nil // cycle
		}
		onPath[c] = true
		defer delete(onPath, c)

		ps, err := parents(ctx, c)
		if err != nil {
			return 0, err
		}
		best := 0
		for _, p := range ps {
			d, err := walk(p)
			if err != nil {
				return 0, err
			}
			if d+1 > best {
				best = d + 1
			}
		}
		memo[c] = best
		return best, nil
	}
	return walk(class)
}

// commonAncestor picks the deepest term reachable from both a and b. Ties
// prefer the smaller combined distance, then lexical order.
func commonAncestor(ctx context.Context, a, b string, parents parentsFunc) (string, bool, error) {
	if a == b {
		return a, true, nil
	}
	da, err := ancestors(ctx, a, parents)
	if err != nil {
		return "", false, err
	}
	db, err := ancestors(ctx, b, parents)
	if err != nil {
		return "", false, err
	}

	type candidate struct {
		name  string
		depth int
		dist  int
	}
	var cands []candidate
	for name, d1 := range da {
		d2, ok := db[name]
		if !ok {
			continue
		}
		dep, err := depth(ctx, name, parents)
		if err != nil {
			return "", false, err
		}
		cands = append(cands, candidate{name: name, depth: dep, dist: d1 + d2})
	}
	if len(cands) == 0 {
		return "", false, nil
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].depth != cands[j].depth {
			return cands[i].depth > cands[j].depth
		}
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].name < cands[j].name
	})
	return cands[0].name, true, nil
}
