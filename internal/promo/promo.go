package promo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/attos/attos-backend/pkg/errors"
)

// Messages shown to shoppers.
const (
	MsgEmptyCode   = "please enter a promo code"
	MsgInvalidCode = "invalid promo code"
)

// Rule is one allow-listed promo code.
type Rule struct {
	Code        string
	Fraction    decimal.Decimal
	MinSubtotal decimal.Decimal
}

// Result is the outcome of evaluating a code against a subtotal.
type Result struct {
	Valid            bool            `json:"valid"`
	Code             string          `json:"code,omitempty"`
	DiscountFraction decimal.Decimal `json:"discountFraction"`
}

// Discount returns the amount taken off subtotal, rounded to paise.
func (r Result) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if !r.Valid || subtotal.IsNegative() {
		return decimal.Zero
	}
	return subtotal.Mul(r.DiscountFraction).Round(2)
}

// Evaluator matches codes against a fixed allow-list. It is immutable and safe for concurrent use.
type Evaluator struct {
	rules map[string]Rule
}

// NewEvaluator validates rules and indexes them by normalized code.
func NewEvaluator(rules ...Rule) (*Evaluator, error) {
	e := &Evaluator{rules: make(map[string]Rule, len(rules))}
	one := decimal.NewFromInt(1)
	for _, r := range rules {
		code := normalize(r.Code)
		if code == "" {
			return nil, fmt.Errorf("promo code is required")
		}
		if _, dup := e.rules[code]; dup {
			return nil, fmt.Errorf("promo code %s configured twice", code)
		}
		if !r.Fraction.IsPositive() || r.Fraction.GreaterThan(one) {
			return nil, fmt.Errorf("promo code %s: fraction must be in (0, 1]", code)
		}
		if r.MinSubtotal.IsNegative() {
			return nil, fmt.Errorf("promo code %s: minimum subtotal must be non-negative", code)
		}
		r.Code = code
		e.rules[code] = r
	}
	return e, nil
}

// RulesFromConfig parses CODE -> "fraction" or "fraction@minSubtotal" entries.
func RulesFromConfig(codes map[string]string) ([]Rule, error) {
	keys := make([]string, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	sort.Strings(keys)

	rules := make([]Rule, 0, len(codes))
	for _, code := range keys {
		raw := strings.TrimSpace(codes[code])
		fractionRaw, minRaw, hasMin := strings.Cut(raw, "@")
		fraction, err := decimal.NewFromString(strings.TrimSpace(fractionRaw))
		if err != nil {
			return nil, fmt.Errorf("promo code %s: invalid fraction %q", code, fractionRaw)
		}
		rule := Rule{Code: code, Fraction: fraction}
		if hasMin {
			minSubtotal, err := decimal.NewFromString(strings.TrimSpace(minRaw))
			if err != nil {
				return nil, fmt.Errorf("promo code %s: invalid minimum subtotal %q", code, minRaw)
			}
			rule.MinSubtotal = minSubtotal
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Evaluate performs a trimmed, case-insensitive exact match. Unknown codes and
// codes whose minimum subtotal is not met come back as {Valid:false, DiscountFraction:0}.
func (e *Evaluator) Evaluate(code string, subtotal decimal.Decimal) Result {
	rule, ok := e.rules[normalize(code)]
	if !ok || subtotal.LessThan(rule.MinSubtotal) {
		return Result{Valid: false, DiscountFraction: decimal.Zero}
	}
	return Result{Valid: true, Code: rule.Code, DiscountFraction: rule.Fraction}
}

// Apply is Evaluate with typed errors for the shopper-facing message.
func (e *Evaluator) Apply(code string, subtotal decimal.Decimal) (Result, error) {
	normalized := normalize(code)
	if normalized == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, MsgEmptyCode)
	}
	rule, ok := e.rules[normalized]
	if !ok {
		return Result{}, pkgerrors.New(pkgerrors.CodeInvalidPromo, MsgInvalidCode)
	}
	if subtotal.LessThan(rule.MinSubtotal) {
		return Result{}, pkgerrors.New(pkgerrors.CodeInvalidPromo, MsgInvalidCode).
			WithDetails(map[string]any{"minSubtotal": rule.MinSubtotal.StringFixed(2)})
	}
	return Result{Valid: true, Code: rule.Code, DiscountFraction: rule.Fraction}, nil
}

// Codes lists the configured codes in sorted order.
func (e *Evaluator) Codes() []string {
	out := make([]string, 0, len(e.rules))
	for code := range e.rules {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
