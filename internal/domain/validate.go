package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateEdges rechaza aristas estructuralmente invalidas. Un grafo con
// referencias mal formadas no se puede usar parcialmente.
func ValidateEdges(edges []Edge) error {
	for _, e := range edges {
		if err := validate.Struct(e); err != nil {
			return fmt.Errorf("%w %s (%s -> %s): %v", ErrInvalidEdge, e.ID, e.FromID, e.ToID, err)
		}
	}
	return nil
}

// ValidateClaim verifica rango de confianza y tipo de sujeto.
func ValidateClaim(c Claim) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w for %s/%s: %v", ErrInvalidClaim, c.SubjectID, c.Key, err)
	}
	return nil
}
