package graph

import (
	"slices"

	"relnet/internal/domain"
)

// Node es la vista externa de un nodo en la adyacencia.
type Node struct {
	ID          string   `json:"id"`
	Connections []string `json:"connections"`
	InDegree    int      `json:"in_degree"`
	OutDegree   int      `json:"out_degree"`
}

// Graph guarda la adyacencia de un workspace con indices densos. Las aristas
// se simetrizan: adj contiene vecinos no dirigidos, in/out cuentan las
// aristas dirigidas tal como se almacenaron.
type Graph struct {
	ids     []string
	index   map[string]int
	adj     [][]int
	in      []int
	out     []int
	linked  []bool
	skipped int
}

// Build arma el grafo a partir de los ids de personas y sus aristas. Las
// aristas con extremos desconocidos se descartan en silencio, igual que los
// bucles. Ids repetidos se indexan una sola vez.
func Build(nodeIDs []string, edges []domain.Edge) *Graph {
	g := &Graph{
		ids:   make([]string, 0, len(nodeIDs)),
		index: make(map[string]int, len(nodeIDs)),
	}
	for _, id := range nodeIDs {
		if _, ok := g.index[id]; ok {
			continue
		}
		g.index[id] = len(g.ids)
		g.ids = append(g.ids, id)
	}

	n := len(g.ids)
	g.adj = make([][]int, n)
	g.in = make([]int, n)
	g.out = make([]int, n)
	g.linked = make([]bool, n)

	for _, e := range edges {
		from, okFrom := g.index[e.FromID]
		to, okTo := g.index[e.ToID]
		if !okFrom || !okTo {
			g.skipped++
			continue
		}
		g.linked[from] = true
		g.linked[to] = true
		if from == to {
			continue
		}
		g.out[from]++
		g.in[to]++
		g.adj[from] = append(g.adj[from], to)
		g.adj[to] = append(g.adj[to], from)
	}

	for i := range g.adj {
		slices.Sort(g.adj[i])
		g.adj[i] = slices.Compact(g.adj[i])
	}
	return g
}

// Len devuelve la cantidad de nodos.
func (g *Graph) Len() int { return len(g.ids) }

// ID devuelve el id externo del indice i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// IDs devuelve los ids en orden de indice.
func (g *Graph) IDs() []string { return slices.Clone(g.ids) }

// Index traduce un id externo a su indice denso.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Neighbors devuelve los vecinos no dirigidos de i ordenados por indice.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// Degree es la cantidad de vecinos distintos de i.
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// EdgeCount es la cantidad de aristas no dirigidas distintas.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, nb := range g.adj {
		total += len(nb)
	}
	return total / 2
}

// Skipped cuenta las aristas descartadas por extremos desconocidos.
func (g *Graph) Skipped() int { return g.skipped }

// LinkedIDs devuelve los nodos que aparecen en alguna arista valida.
func (g *Graph) LinkedIDs() []string {
	ids := make([]string, 0, len(g.ids))
	for i, ok := range g.linked {
		if ok {
			ids = append(ids, g.ids[i])
		}
	}
	return ids
}

// Adjacency traduce la estructura interna a un mapa por id, solo para I/O.
func (g *Graph) Adjacency() map[string]Node {
	out := make(map[string]Node, len(g.ids))
	for i, id := range g.ids {
		conns := make([]string, len(g.adj[i]))
		for k, j := range g.adj[i] {
			conns[k] = g.ids[j]
		}
		out[id] = Node{
			ID:          id,
			Connections: conns,
			InDegree:    g.in[i],
			OutDegree:   g.out[i],
		}
	}
	return out
}
