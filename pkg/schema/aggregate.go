package schema

import (
	"fmt"
	"strings"
)

// Aggregator merges two values of one property when records with equal
// keys are combined. A nil operand yields the other operand.
type Aggregator interface {
	Name() string
	Apply(a, b interface{}) (interface{}, error)
}

type aggregatorFunc struct {
	name string
	fn   func(a, b interface{}) (interface{}, error)
}

func (f aggregatorFunc) Name() string { return f.name }

func (f aggregatorFunc) Apply(a, b interface{}) (interface{}, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	return f.fn(a, b)
}

// Built-in aggregators.
var (
	Sum   Aggregator = &aggregatorFunc{"sum", sum}
	Min   Aggregator = &aggregatorFunc{"min", func(a, b interface{}) (interface{}, error) { return pick(a, b, true) }}
	Max   Aggregator = &aggregatorFunc{"max", func(a, b interface{}) (interface{}, error) { return pick(a, b, false) }}
	First Aggregator = &aggregatorFunc{"first", func(a, _ interface{}) (interface{}, error) { return a, nil }}
	Last  Aggregator = &aggregatorFunc{"last", func(_, b interface{}) (interface{}, error) { return b, nil }}
	Or    Aggregator = &aggregatorFunc{"or", func(a, b interface{}) (interface{}, error) { return logic(a, b, true) }}
	And   Aggregator = &aggregatorFunc{"and", func(a, b interface{}) (interface{}, error) { return logic(a, b, false) }}
)

var aggregators = map[string]Aggregator{
	"sum": Sum, "min": Min, "max": Max, "first": First, "last": Last, "or": Or, "and": And,
}

// AggregatorByName resolves a built-in aggregator.
func AggregatorByName(name string) (Aggregator, error) {
	a, ok := aggregators[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown aggregator %q", name)
	}
	return a, nil
}

func sum(a, b interface{}) (interface{}, error) {
	switch x := a.(type) {
	case int:
		if y, ok := b.(int); ok {
			return x + y, nil
		}
	case int64:
		if y, ok := b.(int64); ok {
			return x + y, nil
		}
	case float64:
		if y, ok := b.(float64); ok {
			return x + y, nil
		}
	}
	return nil, mismatch("sum", a, b)
}

func pick(a, b interface{}, smaller bool) (interface{}, error) {
	var less bool
	switch x := a.(type) {
	case int:
		y, ok := b.(int)
		if !ok {
			return nil, mismatch("min/max", a, b)
		}
		less = y < x
	case int64:
		y, ok := b.(int64)
		if !ok {
			return nil, mismatch("min/max", a, b)
		}
		less = y < x
	case float64:
		y, ok := b.(float64)
		if !ok {
			return nil, mismatch("min/max", a, b)
		}
		less = y < x
	case string:
		y, ok := b.(string)
		if !ok {
			return nil, mismatch("min/max", a, b)
		}
		less = y < x
	default:
		return nil, mismatch("min/max", a, b)
	}
	if less == smaller {
		return b, nil
	}
	return a, nil
}

func logic(a, b interface{}, or bool) (interface{}, error) {
	x, ok1 := a.(bool)
	y, ok2 := b.(bool)
	if !ok1 || !ok2 {
		return nil, mismatch("or/and", a, b)
	}
	if or {
		return x || y, nil
	}
	return x && y, nil
}

func mismatch(op string, a, b interface{}) error {
	return fmt.Errorf("cannot %s %T and %T", op, a, b)
}
