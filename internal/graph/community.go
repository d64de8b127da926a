package graph

import "fmt"

// maxPropagationRounds limita las pasadas de propagacion de etiquetas.
const maxPropagationRounds = 10

// Community es un grupo de nodos con la misma etiqueta final.
type Community struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
	Size    int      `json:"size"`
}

// DetectCommunities agrupa nodos por propagacion de etiquetas. No optimiza
// modularidad: sirve para insights orientativos.
//
// Cada nodo arranca con su propia etiqueta y adopta la mas frecuente entre
// sus vecinos. Si la etiqueta actual esta entre las mas frecuentes se
// conserva; si no, gana la menor de las empatadas. Los nodos aislados quedan
// solos. Las comunidades salen ordenadas por la aparicion de su primer
// miembro.
func DetectCommunities(g *Graph) []Community {
	labels := propagateLabels(g)

	order := make([]int, 0)
	members := make(map[int][]string)
	for i, label := range labels {
		if _, ok := members[label]; !ok {
			order = append(order, label)
		}
		members[label] = append(members[label], g.ID(i))
	}

	communities := make([]Community, 0, len(order))
	for k, label := range order {
		m := members[label]
		communities = append(communities, Community{
			ID:      fmt.Sprintf("c%d", k+1),
			Members: m,
			Size:    len(m),
		})
	}
	return communities
}

func propagateLabels(g *Graph) []int {
	n := g.Len()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	counts := make([]int, n)
	touched := make([]int, 0, 16)
	for round := 0; round < maxPropagationRounds; round++ {
		changed := false
		for i := 0; i < n; i++ {
			neighbors := g.Neighbors(i)
			if len(neighbors) == 0 {
				continue
			}

			touched = touched[:0]
			best := 0
			for _, j := range neighbors {
				l := labels[j]
				if counts[l] == 0 {
					touched = append(touched, l)
				}
				counts[l]++
				if counts[l] > best {
					best = counts[l]
				}
			}

			next := labels[i]
			if counts[next] != best {
				next = n
				for _, l := range touched {
					if counts[l] == best && l < next {
						next = l
					}
				}
			}
			for _, l := range touched {
				counts[l] = 0
			}

			if next != labels[i] {
				labels[i] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}
