package graph

import "time"

// NoEncounterDays marca a una persona sin encuentros registrados.
const NoEncounterDays = 999

// Freshness son los dias completos desde el ultimo encuentro.
type Freshness struct {
	DaysSince       int
	LastEncounterAt *time.Time
}

// ComputeFreshness calcula la frescura de cada id a partir del mapa de
// ultimos encuentros, cargado de una sola vez por el llamador. Un encuentro
// con fecha futura cuenta como cero dias.
func ComputeFreshness(ids []string, lastEncounter map[string]time.Time, now time.Time) map[string]Freshness {
	out := make(map[string]Freshness, len(ids))
	for _, id := range ids {
		last, ok := lastEncounter[id]
		if !ok {
			out[id] = Freshness{DaysSince: NoEncounterDays}
			continue
		}
		out[id] = Freshness{
			DaysSince:       DaysBetween(last, now),
			LastEncounterAt: &last,
		}
	}
	return out
}

// DaysBetween devuelve los dias completos entre from y to, nunca negativo.
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
