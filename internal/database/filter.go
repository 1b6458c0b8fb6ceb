package database

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Op int

const (
	OpEqual Op = iota
	OpPrefix
	OpGreaterThan
	OpLessOrEqual
)

// Filter is a single-field predicate that every backend can translate
// into its native query language.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Equal(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

func Prefix(field, prefix string) Filter {
	return Filter{Field: field, Op: OpPrefix, Value: prefix}
}

func GreaterThan(field string, value any) Filter {
	return Filter{Field: field, Op: OpGreaterThan, Value: value}
}

func LessOrEqual(field string, value any) Filter {
	return Filter{Field: field, Op: OpLessOrEqual, Value: value}
}

func (f Filter) String() string {
	switch f.Op {
	case OpPrefix:
		return fmt.Sprintf("%s LIKE '%v%%'", f.Field, f.Value)
	case OpGreaterThan:
		return fmt.Sprintf("%s > %v", f.Field, f.Value)
	case OpLessOrEqual:
		return fmt.Sprintf("%s <= %v", f.Field, f.Value)
	}
	return fmt.Sprintf("%s = %v", f.Field, f.Value)
}

func (f Filter) validate() error {
	if f.Field == "" {
		return fmt.Errorf("filter field is required")
	}
	if strings.ContainsAny(f.Field, `"'[]\`) {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	if f.Op == OpPrefix {
		if _, ok := f.Value.(string); !ok {
			return fmt.Errorf("prefix filter on %q needs a string value", f.Field)
		}
	}
	return nil
}

// Match evaluates f against doc in process.
func (f Filter) Match(doc Document) bool {
	v, ok := doc[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case OpPrefix:
		s, ok := v.(string)
		prefix, _ := f.Value.(string)
		return ok && strings.HasPrefix(s, prefix)
	case OpGreaterThan, OpLessOrEqual:
		a, okA := toFloat(v)
		b, okB := toFloat(f.Value)
		if !okA || !okB {
			return false
		}
		if f.Op == OpGreaterThan {
			return a > b
		}
		return a <= b
	}
	if a, ok := toFloat(v); ok {
		b, ok := toFloat(f.Value)
		return ok && a == b
	}
	return v == f.Value
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
