package matching

import (
	"slices"
	"strings"

	"relnet/internal/domain"
)

// Pair es un par no ordenado de personas candidatas.
type Pair struct {
	A string
	B string
}

// PrefilterInput es la foto del workspace que usa el prefiltro.
type PrefilterInput struct {
	People     []domain.Person
	Edges      []domain.Edge
	Encounters []domain.Encounter
	Claims     map[string][]domain.Claim
}

// PrefilterPairs devuelve solo los pares que comparten algo: una arista
// directa, un vecino en comun, un encuentro, el valor normalizado de un
// claim o la ciudad. Evita pagar el costo cuadratico de puntuar (y de pedir
// embeddings) para pares sin relacion. El orden sigue al de People.
func PrefilterPairs(in PrefilterInput) []Pair {
	index := make(map[string]int, len(in.People))
	for _, p := range in.People {
		if _, ok := index[p.ID]; !ok {
			index[p.ID] = len(index)
		}
	}
	ids := make([]string, len(index))
	for id, i := range index {
		ids[i] = id
	}

	keep := make(map[[2]int]struct{})
	link := func(x, y int) {
		if x == y {
			return
		}
		if x > y {
			x, y = y, x
		}
		keep[[2]int{x, y}] = struct{}{}
	}
	linkAll := func(group []int) {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				link(group[i], group[j])
			}
		}
	}

	neighbors := make(map[int][]int)
	for _, e := range in.Edges {
		from, okFrom := index[e.FromID]
		to, okTo := index[e.ToID]
		if !okFrom || !okTo || from == to {
			continue
		}
		link(from, to)
		neighbors[from] = append(neighbors[from], to)
		neighbors[to] = append(neighbors[to], from)
	}
	for _, group := range neighbors {
		slices.Sort(group)
		linkAll(slices.Compact(group))
	}

	for _, enc := range in.Encounters {
		var group []int
		for _, pid := range enc.ParticipantIDs {
			if i, ok := index[pid]; ok {
				group = append(group, i)
			}
		}
		slices.Sort(group)
		linkAll(slices.Compact(group))
	}

	buckets := make(map[string][]int)
	for _, p := range in.People {
		i := index[p.ID]
		if city := CityToken(p.Location); city != "" {
			buckets["loc:"+city] = append(buckets["loc:"+city], i)
		}
	}
	for pid, claims := range in.Claims {
		i, ok := index[pid]
		if !ok {
			continue
		}
		for _, c := range claims {
			if v := normalizeValue(c.Value); v != "" {
				buckets["claim:"+v] = append(buckets["claim:"+v], i)
			}
		}
	}
	for _, group := range buckets {
		slices.Sort(group)
		linkAll(slices.Compact(group))
	}

	keys := make([][2]int, 0, len(keep))
	for k := range keep {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y [2]int) int {
		if x[0] != y[0] {
			return x[0] - y[0]
		}
		return x[1] - y[1]
	})

	pairs := make([]Pair, len(keys))
	for n, k := range keys {
		pairs[n] = Pair{A: ids[k[0]], B: ids[k[1]]}
	}
	return pairs
}

func normalizeValue(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}
