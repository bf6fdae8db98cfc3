package extraction

import (
	"sort"
	"strings"
)

// merger describes how one record kind is deduplicated.
type merger[T any] struct {
	stage     string
	threshold float64
	text      func(T) string
	// sameGroup restricts which records may merge. Nil allows any pair.
	sameGroup func(a, b T) bool
	// merge folds a cluster, in input order, into one record.
	merge func(cluster []T) T
}

// dedup clusters records whose texts are more similar than the threshold
// and folds each cluster. Clusters are connected components, so a record
// joins a cluster through any member. Output follows the position of each
// cluster's first member. Without an embedder, or with fewer than two
// records, the input is returned as is. If embedding fails the clusters
// come from equal lowercase text prefixes instead.
func dedup[T any](r *run, items []T, m merger[T]) []T {
	if r.embedder == nil || len(items) < 2 {
		return items
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = m.text(it)
	}

	uf := newUnionFind(len(items))
	res := embed(r.ctx, r.embedder, texts)
	if !res.OK() {
		r.dl.note(r.ctx, m.stage+".dedup", res.Reason, res.Err)
		for i := range items {
			for j := i + 1; j < len(items); j++ {
				if prefixKey(texts[i], r.th.PrefixLength) == prefixKey(texts[j], r.th.PrefixLength) && m.allowed(items[i], items[j]) {
					uf.union(i, j)
				}
			}
		}
	} else {
		for i := range items {
			for j := i + 1; j < len(items); j++ {
				if cosine(res.Value[i], res.Value[j]) > m.threshold && m.allowed(items[i], items[j]) {
					uf.union(i, j)
				}
			}
		}
	}

	clusters := map[int][]int{}
	for i := range items {
		root := uf.find(i)
		clusters[root] = append(clusters[root], i)
	}
	groups := make([][]int, 0, len(clusters))
	for _, idx := range clusters {
		groups = append(groups, idx)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })

	out := make([]T, 0, len(groups))
	for _, g := range groups {
		if len(g) == 1 {
			out = append(out, items[g[0]])
			continue
		}
		cluster := make([]T, len(g))
		for k, i := range g {
			cluster[k] = items[i]
		}
		out = append(out, m.merge(cluster))
	}
	return out
}

func (m merger[T]) allowed(a, b T) bool {
	return m.sameGroup == nil || m.sameGroup(a, b)
}

type unionFind []int

func newUnionFind(n int) unionFind {
	uf := make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return uf
}

func (uf unionFind) find(i int) int {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

// union keeps the smaller index as root.
func (uf unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf[rb] = ra
}

// highestConfidence returns the index of the most confident record. Ties
// go to the earlier one.
func highestConfidence[T any](cluster []T, conf func(T) float64) int {
	best := 0
	for i := 1; i < len(cluster); i++ {
		if conf(cluster[i]) > conf(cluster[best]) {
			best = i
		}
	}
	return best
}

// unionNames merges name lists case-insensitively and drops Unclear when a
// real name is present.
func unionNames(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range lists {
		for _, n := range l {
			k := strings.ToLower(strings.TrimSpace(n))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, strings.TrimSpace(n))
		}
	}
	if len(out) > 1 {
		kept := out[:0]
		for _, n := range out {
			if n != Unclear {
				kept = append(kept, n)
			}
		}
		out = kept
	}
	return out
}
