package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
)

// subject is what a rule is evaluated against: one source in one snapshot,
// or the pipeline as a whole.
type subject struct {
	id          string
	coverage    derive.SourceCoverage
	hasCoverage bool
	demo        bool
	health      float64
}

// condition is a parsed "field op value" expression.
type condition struct {
	field string
	op    string
	rhs   string
	num   float64
}

// Numeric fields a condition may reference.
var numericFields = map[string]func(subject) float64{
	"coverage_pct":  func(s subject) float64 { return float64(s.coverage.CoveragePercent) },
	"error_years":   func(s subject) float64 { return float64(len(s.coverage.YearsWithErrors)) },
	"synced_years":  func(s subject) float64 { return float64(len(s.coverage.YearsSynced)) },
	"synced_docs":   func(s subject) float64 { return float64(s.coverage.SyncedDocuments) },
	"total_docs":    func(s subject) float64 { return float64(s.coverage.TotalDocuments) },
	"pending_years": func(s subject) float64 { return float64(len(s.coverage.YearsAvailable) - len(s.coverage.YearsSynced)) },
	"health_score":  func(s subject) float64 { return s.health },
}

// Fields that describe the whole pipeline rather than one source.
var pipelineFields = map[string]bool{
	"state":        true,
	"health_score": true,
}

// parseCondition parses a rule condition.
//
// Supported expressions:
//
//	coverage_pct < 80
//	error_years > 0
//	synced_years >= 5
//	synced_docs < 1000
//	total_docs == 0
//	pending_years > 2
//	health_score < 60
//	state == demo
//	state == live
func parseCondition(cond string) (condition, error) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	c := condition{field: parts[0], op: parts[1], rhs: parts[2]}

	switch c.op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", cond, c.op)
	}

	if c.field == "state" {
		if c.op != "==" && c.op != "!=" {
			return condition{}, fmt.Errorf("condition %q: state only supports == and !=", cond)
		}
		if c.rhs != "demo" && c.rhs != "live" {
			return condition{}, fmt.Errorf("condition %q: state is demo or live", cond)
		}
		return c, nil
	}

	if _, ok := numericFields[c.field]; !ok {
		return condition{}, fmt.Errorf("condition %q: unknown field %q", cond, c.field)
	}
	n, err := strconv.ParseFloat(c.rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: value %q is not a number", cond, c.rhs)
	}
	c.num = n
	return c, nil
}

// pipelineWide reports whether c is evaluated once per snapshot instead of
// once per source.
func (c condition) pipelineWide() bool { return pipelineFields[c.field] }

// eval reports whether c holds for s, and the value that was compared.
func (c condition) eval(s subject) (bool, float64) {
	if c.field == "state" {
		state := "live"
		if s.demo {
			state = "demo"
		}
		eq := state == c.rhs
		if c.op == "!=" {
			return !eq, 0
		}
		return eq, 0
	}
	v := numericFields[c.field](s)
	return compareFloat(v, c.op, c.num), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
