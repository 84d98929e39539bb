package regress

import (
	"fmt"

	apperrors "breachstudy/internal/errors"
	"breachstudy/internal/sample"
)

// Spec describes one regression specification: outcome on treatment, an
// optional control set, and an optional treatment-by-moderator interaction.
// The ladder is an ordered list of these consumed by one generic fitter;
// there is no per-specification fitting logic.
type Spec struct {
	Name      string
	Controls  []string
	Moderator string // empty for no interaction
}

// covariateAccessors is the closed covariate schema of the design matrix.
// Each accessor returns the value and whether it is observed for the row;
// unknown names are config errors at ladder construction, so column-name
// drift cannot reach the fitter.
var covariateAccessors = map[string]func(sample.Record) (float64, bool){
	"firm_size":          func(r sample.Record) (float64, bool) { return r.FirmSize.Value, r.FirmSize.Valid },
	"leverage":           func(r sample.Record) (float64, bool) { return r.Leverage.Value, r.Leverage.Valid },
	"roa":                func(r sample.Record) (float64, bool) { return r.ROA.Value, r.ROA.Valid },
	"log_records":        func(r sample.Record) (float64, bool) { return r.LogRecords, true },
	"prior_breaches":     func(r sample.Record) (float64, bool) { return float64(r.PriorBreaches), true },
	"delay_days":         func(r sample.Record) (float64, bool) { return float64(r.DelayDays), true },
	"post_rule":          func(r sample.Record) (float64, bool) { return boolToFloat(r.PostRule), true },
	"health_data":        func(r sample.Record) (float64, bool) { return boolToFloat(r.HealthData), true },
	"exec_turnover":      func(r sample.Record) (float64, bool) { return boolToFloat(r.ExecTurnover), true },
	"enforcement_action": func(r sample.Record) (float64, bool) { return boolToFloat(r.EnforcementAction), true },
	"size_tercile":       func(r sample.Record) (float64, bool) { return float64(r.SizeTercile), r.SizeTercile > 0 },
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// BuildLadder constructs the ordered specification list: treatment-only
// baseline, full controls, then one interaction specification per moderator.
// Moderator interactions are never merged into one omnibus model.
func BuildLadder(controls, moderators []string) ([]Spec, error) {
	for _, name := range controls {
		if _, ok := covariateAccessors[name]; !ok {
			return nil, apperrors.NewConfigError("unknown control variable", nil).
				WithContext("control", name)
		}
	}
	for _, name := range moderators {
		if _, ok := covariateAccessors[name]; !ok {
			return nil, apperrors.NewConfigError("unknown moderator variable", nil).
				WithContext("moderator", name)
		}
	}

	specs := []Spec{
		{Name: "baseline"},
		{Name: "full_controls", Controls: controls},
	}
	for _, moderator := range moderators {
		specs = append(specs, Spec{
			Name:      fmt.Sprintf("interaction_%s", moderator),
			Controls:  controls,
			Moderator: moderator,
		})
	}
	return specs, nil
}

// terms lists the design-matrix columns of the specification in order,
// excluding the intercept
func (s Spec) terms() []string {
	terms := []string{"treated"}
	terms = append(terms, s.Controls...)
	if s.Moderator != "" {
		if !contains(s.Controls, s.Moderator) {
			terms = append(terms, s.Moderator)
		}
		terms = append(terms, "treated_x_"+s.Moderator)
	}
	return terms
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
