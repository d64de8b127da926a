package graph

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// sourceChunk es la cantidad de fuentes que procesa cada tarea de Brandes.
// Fijo para que el orden de suma no dependa de la cantidad de workers.
const sourceChunk = 32

// BetweennessOptions controla el costo del calculo.
type BetweennessOptions struct {
	// Workers limita las goroutines concurrentes. <= 0 usa GOMAXPROCS.
	Workers int
	// SampleSize > 0 y menor que n usa solo esa cantidad de fuentes,
	// elegidas con paso fijo, y escala el resultado por n/k.
	SampleSize int
}

// DegreeCentrality normaliza la cantidad de vecinos por el grado maximo.
func DegreeCentrality(g *Graph) []float64 {
	n := g.Len()
	out := make([]float64, n)
	maxDegree := 0
	for i := 0; i < n; i++ {
		if d := g.Degree(i); d > maxDegree {
			maxDegree = d
		}
	}
	if maxDegree == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		out[i] = float64(g.Degree(i)) / float64(maxDegree)
	}
	return out
}

// Betweenness calcula la centralidad de intermediacion con Brandes sobre la
// adyacencia no dirigida, normalizada por (n-1)(n-2).
func Betweenness(ctx context.Context, g *Graph, opts BetweennessOptions) ([]float64, error) {
	n := g.Len()
	scores := make([]float64, n)
	if n <= 2 || g.EdgeCount() == 0 {
		return scores, ctx.Err()
	}

	sources := selectSources(n, opts.SampleSize)
	chunks := (len(sources) + sourceChunk - 1) / sourceChunk
	partials := make([][]float64, chunks)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		if err := egCtx.Err(); err != nil {
			break
		}
		lo := c * sourceChunk
		hi := min(lo+sourceChunk, len(sources))
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			partials[c] = brandesChunk(g, sources[lo:hi])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, part := range partials {
		for i, v := range part {
			scores[i] += v
		}
	}

	scale := float64(n) / float64(len(sources))
	norm := float64((n - 1) * (n - 2))
	for i := range scores {
		scores[i] = scores[i] * scale / norm
	}
	return scores, nil
}

func selectSources(n, sample int) []int {
	if sample <= 0 || sample >= n {
		sources := make([]int, n)
		for i := range sources {
			sources[i] = i
		}
		return sources
	}
	sources := make([]int, sample)
	for i := range sources {
		sources[i] = i * n / sample
	}
	return sources
}

// brandesChunk acumula dependencias para un grupo de fuentes reutilizando
// los buffers entre fuentes.
func brandesChunk(g *Graph, sources []int) []float64 {
	n := g.Len()
	acc := make([]float64, n)
	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	pred := make([][]int, n)
	order := make([]int, 0, n)
	queue := make([]int, 0, n)

	for _, s := range sources {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			pred[i] = pred[i][:0]
		}
		order = order[:0]
		queue = append(queue[:0], s)
		sigma[s] = 1
		dist[s] = 0

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			order = append(order, v)
			for _, w := range g.Neighbors(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		for k := len(order) - 1; k >= 0; k-- {
			w := order[k]
			if sigma[w] == 0 {
				continue
			}
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				acc[w] += delta[w]
			}
		}
	}
	return acc
}
