package analysis

// elementaryCycles enumerates elementary cycles with Johnson's algorithm.
// adj holds sorted successors; starts lists every vertex in ascending
// order. Each cycle begins at its smallest id. The search stops after
// limit cycles; limit <= 0 means no limit.
func elementaryCycles(adj map[int64][]int64, starts []int64, limit int) [][]int64 {
	j := &johnson{adj: adj, limit: limit}
	for _, s := range starts {
		j.start = s
		j.blocked = make(map[int64]bool)
		j.b = make(map[int64]map[int64]bool)
		j.stack = j.stack[:0]
		if _, stop := j.circuit(s); stop {
			break
		}
	}
	return j.found
}

type johnson struct {
	adj     map[int64][]int64
	limit   int
	start   int64
	blocked map[int64]bool
	b       map[int64]map[int64]bool
	stack   []int64
	found   [][]int64
}

func (j *johnson) full() bool {
	return j.limit > 0 && len(j.found) >= j.limit
}

// circuit extends the path on the stack through v. Only vertices not
// below start are visited, so every cycle is reported exactly once.
func (j *johnson) circuit(v int64) (closed, stop bool) {
	j.stack = append(j.stack, v)
	j.blocked[v] = true
	for _, w := range j.adj[v] {
		switch {
		case w < j.start:
		case w == j.start:
			j.found = append(j.found, append([]int64(nil), j.stack...))
			closed = true
			if j.full() {
				return true, true
			}
		case !j.blocked[w]:
			c, s := j.circuit(w)
			if s {
				return true, true
			}
			closed = closed || c
		}
	}
	if closed {
		j.unblock(v)
	} else {
		for _, w := range j.adj[v] {
			if w < j.start {
				continue
			}
			if j.b[w] == nil {
				j.b[w] = make(map[int64]bool)
			}
			j.b[w][v] = true
		}
	}
	j.stack = j.stack[:len(j.stack)-1]
	return closed, false
}

func (j *johnson) unblock(u int64) {
	j.blocked[u] = false
	for w := range j.b[u] {
		delete(j.b[u], w)
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}

func lessIDs(a, b []int64) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
