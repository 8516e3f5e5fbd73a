// Package rules generates the math elimination rules used in the first phase.
//
// Every call to Generate draws fresh parameters, so the same rule kind can
// target different ids from one round to the next.
package rules

import (
	"fmt"
	"math/rand"
)

// Rule kinds, in the order Generate returns them.
const (
	KindDoubleDigits = "double_digits"
	KindEndsWith     = "ends_with"
	KindSumEquals    = "sum_equals"
	KindDivisibleBy  = "divisible_by"
)

// RulesPerDraw is the fixed number of rules returned by Generate.
const RulesPerDraw = 4

// Parameter ranges for the randomized rules.
const (
	minDigitSum = 5
	maxDigitSum = 14
)

var divisors = [...]int{3, 4, 5, 7}

// Rule is an elimination predicate over player ids.
// Param is the randomized parameter (digit, sum or divisor); 0 for Double Digits.
type Rule struct {
	Kind        string
	Name        string
	Description string
	Param       int
	Check       func(id int) bool
}

// Matches reports whether id is selected by the rule. A rule without a predicate matches nothing.
func (r Rule) Matches(id int) bool {
	if r.Check == nil {
		return false
	}
	return r.Check(id)
}

// Generate returns the four rules with freshly drawn parameters:
// Double Digits, Ends With d (d in [0,9]), Sum Equals s (s in [5,14]) and Divisible By k (k in {3,4,5,7}).
func Generate(rng *rand.Rand) []Rule {
	digit := rng.Intn(10)
	sum := rng.Intn(maxDigitSum-minDigitSum+1) + minDigitSum
	divisor := divisors[rng.Intn(len(divisors))]

	return []Rule{
		DoubleDigits(),
		EndsWith(digit),
		SumEquals(sum),
		DivisibleBy(divisor),
	}
}

// Pick returns one of the given rules uniformly at random.
func Pick(rng *rand.Rand, rules []Rule) Rule {
	return rules[rng.Intn(len(rules))]
}

// DoubleDigits matches two-digit ids whose digits are equal (11, 22, ..., 99).
func DoubleDigits() Rule {
	return Rule{
		Kind:        KindDoubleDigits,
		Name:        "Double Digits",
		Description: "Numbers with a doubled digit (11, 22, 33, 44...)",
		Check: func(id int) bool {
			return id >= 10 && id <= 99 && id/10 == id%10
		},
	}
}

// EndsWith matches ids whose last decimal digit is d.
func EndsWith(d int) Rule {
	return Rule{
		Kind:        KindEndsWith,
		Name:        "Ends With",
		Description: fmt.Sprintf("Numbers ending with %d", d),
		Param:       d,
		Check: func(id int) bool {
			return id%10 == d
		},
	}
}

// SumEquals matches ids whose decimal digits add up to s.
func SumEquals(s int) Rule {
	return Rule{
		Kind:        KindSumEquals,
		Name:        "Sum Equals",
		Description: fmt.Sprintf("Digits adding up to %d", s),
		Param:       s,
		Check: func(id int) bool {
			return DigitSum(id) == s
		},
	}
}

// DivisibleBy matches ids that are multiples of k.
func DivisibleBy(k int) Rule {
	return Rule{
		Kind:        KindDivisibleBy,
		Name:        "Divisible By",
		Description: fmt.Sprintf("Numbers divisible by %d", k),
		Param:       k,
		Check: func(id int) bool {
			return k != 0 && id%k == 0
		},
	}
}

// DigitSum returns the sum of the decimal digits of n (sign ignored).
func DigitSum(n int) int {
	if n < 0 {
		n = -n
	}
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}
