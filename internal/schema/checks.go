package schema

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Check is a named per-value constraint.
type Check struct {
	Name string
	Fn   func(v Value) bool
}

// Ge checks value >= min.
func Ge(min float64) Check {
	return Check{
		Name: fmt.Sprintf("ge(%g)", min),
		Fn:   func(v Value) bool { return v.Numeric && v.Num >= min },
	}
}

// Gt checks value > min.
func Gt(min float64) Check {
	return Check{
		Name: fmt.Sprintf("gt(%g)", min),
		Fn:   func(v Value) bool { return v.Numeric && v.Num > min },
	}
}

// Le checks value <= max.
func Le(max float64) Check {
	return Check{
		Name: fmt.Sprintf("le(%g)", max),
		Fn:   func(v Value) bool { return v.Numeric && v.Num <= max },
	}
}

// InRange checks min <= value <= max.
func InRange(min, max float64) Check {
	return Check{
		Name: fmt.Sprintf("in_range(%g, %g)", min, max),
		Fn:   func(v Value) bool { return v.Numeric && v.Num >= min && v.Num <= max },
	}
}

// IsIn checks the value is one of the allowed set.
func IsIn(allowed ...string) Check {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return Check{
		Name: fmt.Sprintf("isin%v", allowed),
		Fn: func(v Value) bool {
			_, okv := set[v.Raw]
			return okv
		},
	}
}

// StrMatches checks the value against a regular expression.
func StrMatches(pattern string) Check {
	re := regexp.MustCompile(pattern)
	return Check{
		Name: fmt.Sprintf("str_matches(%s)", pattern),
		Fn:   func(v Value) bool { return re.MatchString(v.Raw) },
	}
}

// StrLength checks the value's rune length is within [min, max]. A max of 0
// means unbounded.
func StrLength(min, max int) Check {
	return Check{
		Name: fmt.Sprintf("str_length(%d, %d)", min, max),
		Fn: func(v Value) bool {
			n := utf8.RuneCountInString(v.Raw)
			if n < min {
				return false
			}
			return max == 0 || n <= max
		},
	}
}
