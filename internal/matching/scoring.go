package matching

import "math"

// baseWeights suma 1. Afiliacion y alineacion con la meta pesan mas.
var baseWeights = [NumFeatures]float64{
	Recency:                  0.15,
	Frequency:                0.08,
	Affiliation:              0.20,
	MutualInterests:          0.06,
	GoalAlignment:            0.18,
	LocationProximity:        0.04,
	NetworkOverlap:           0.06,
	CommunicationPatterns:    0.09,
	ExpertiseComplementarity: 0.04,
	SocialInfluence:          0.03,
	TemporalPatterns:         0.05,
	SemanticSimilarity:       0.02,
}

// qualityThresholds: una feature por encima de su umbral suma qualityBonus
// a su peso.
var qualityThresholds = [NumFeatures]float64{
	Recency:                  7,
	Frequency:                6,
	Affiliation:              7,
	MutualInterests:          6,
	GoalAlignment:            7,
	LocationProximity:        7,
	NetworkOverlap:           6,
	CommunicationPatterns:    6,
	ExpertiseComplementarity: 7,
	SocialInfluence:          6,
	TemporalPatterns:         6,
	SemanticSimilarity:       7,
}

var qualityBonus = [NumFeatures]float64{
	Recency:                  0.02,
	Frequency:                0.01,
	Affiliation:              0.02,
	MutualInterests:          0.01,
	GoalAlignment:            0.02,
	LocationProximity:        0.01,
	NetworkOverlap:           0.01,
	CommunicationPatterns:    0.01,
	ExpertiseComplementarity: 0.01,
	SocialInfluence:          0.01,
	TemporalPatterns:         0.01,
	SemanticSimilarity:       0.01,
}

// ConnectionScore es el puntaje de un par con su desglose.
type ConnectionScore struct {
	Score      int                `json:"score"`
	Factors    FeatureVector      `json:"factors"`
	Weights    map[string]float64 `json:"weights"`
	Confidence int                `json:"confidence"`
}

// Score agrega las features con pesos dinamicos.
//
// Los pesos efectivos (base + bono) se informan renormalizados. El puntaje
// usa la suma sin renormalizar, que equivale a (1 + bono activo) por el
// promedio renormalizado: asi un vector mayor elemento a elemento nunca
// puntua menos. Escala 0-10 por feature, 0-100 el total.
func Score(v FeatureVector) ConnectionScore {
	values := v.Values()

	var effective [NumFeatures]float64
	total := 0.0
	weighted := 0.0
	for f := Feature(0); f < NumFeatures; f++ {
		w := baseWeights[f]
		if values[f] > qualityThresholds[f] {
			w += qualityBonus[f]
		}
		effective[f] = w
		total += w
		weighted += values[f] * w
	}

	weights := make(map[string]float64, NumFeatures)
	for f := Feature(0); f < NumFeatures; f++ {
		weights[f.String()] = effective[f] / total
	}

	return ConnectionScore{
		Score:      clampPercent(math.Round(weighted * 10)),
		Factors:    v,
		Weights:    weights,
		Confidence: Confidence(v),
	}
}

// Confidence mide cuanta evidencia respalda el puntaje: proporcion de
// features no nulas sobre 12 mas 5 puntos por feature mayor a 7.
func Confidence(v FeatureVector) int {
	nonZero := 0
	strong := 0
	for _, x := range v.Values() {
		if x != 0 {
			nonZero++
		}
		if x > 7 {
			strong++
		}
	}
	c := float64(nonZero)/float64(NumFeatures)*100 + 5*float64(strong)
	return clampPercent(math.Round(c))
}

func clampPercent(x float64) int {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return int(x)
}
