package reservation

import (
	"errors"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/rental-hub/rental-hub/internal/domain/property"
)

// EvaluateEligibility evaluates a landlord criteria expression such as
// "hasGuarantor || monthlyIncome >= 3 * monthlyRent" against a submission.
// Empty rule returns true.
func EvaluateEligibility(rule string, in Input, p *property.Property) (bool, error) {
	cond := strings.TrimSpace(rule)
	if cond == "" {
		return true, nil
	}
	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(eligibilityParams(in, p))
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("rule did not evaluate to boolean")
	}
}

func eligibilityParams(in Input, p *property.Property) map[string]interface{} {
	return map[string]interface{}{
		"occupants":     float64(in.Occupants),
		"monthlyIncome": float64(in.MonthlyIncome),
		"hasGuarantor":  in.HasGuarantor,
		"monthlyRent":   float64(p.MonthlyRent),
		"maxOccupants":  float64(p.MaxOccupants),
	}
}
