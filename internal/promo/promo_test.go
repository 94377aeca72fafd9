package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/attos/attos-backend/pkg/errors"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func defaultEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(Rule{Code: "ATTOS10", Fraction: d("0.10")})
	require.NoError(t, err)
	return e
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	e := defaultEvaluator(t)

	got := e.Evaluate("ATTOS10", d("1000"))
	assert.True(t, got.Valid)
	assert.True(t, got.DiscountFraction.Equal(d("0.10")))

	got = e.Evaluate("bogus", d("1000"))
	assert.False(t, got.Valid)
	assert.True(t, got.DiscountFraction.IsZero())

	for _, code := range []string{"attos10", "  Attos10 ", "aTTOS10"} {
		assert.True(t, e.Evaluate(code, d("1000")).Valid, code)
	}
	assert.False(t, e.Evaluate("ATTOS1", d("1000")).Valid, "prefix must not match")
	assert.False(t, e.Evaluate("ASTO10", d("1000")).Valid)
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()
	e := defaultEvaluator(t)

	_, err := e.Apply("   ", d("100"))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, MsgEmptyCode, typed.Message())

	_, err = e.Apply("nope", d("100"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPromo))
	assert.Equal(t, MsgInvalidCode, pkgerrors.As(err).Message())

	res, err := e.Apply("attos10", d("100"))
	require.NoError(t, err)
	assert.Equal(t, "ATTOS10", res.Code)
}

func TestMinimumSubtotal(t *testing.T) {
	t.Parallel()
	e, err := NewEvaluator(Rule{Code: "BIG50", Fraction: d("0.5"), MinSubtotal: d("500")})
	require.NoError(t, err)

	assert.False(t, e.Evaluate("BIG50", d("499.99")).Valid)
	assert.True(t, e.Evaluate("BIG50", d("500")).Valid)

	_, err = e.Apply("BIG50", d("100"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPromo))
	assert.Equal(t, map[string]any{"minSubtotal": "500.00"}, pkgerrors.As(err).Details())
}

func TestResultDiscount(t *testing.T) {
	t.Parallel()
	r := Result{Valid: true, DiscountFraction: d("0.10")}
	assert.True(t, r.Discount(d("333.33")).Equal(d("33.33")))
	assert.True(t, Result{}.Discount(d("100")).IsZero())
}

func TestNewEvaluatorValidation(t *testing.T) {
	t.Parallel()
	cases := [][]Rule{
		{{Code: "", Fraction: d("0.1")}},
		{{Code: "A", Fraction: d("0")}},
		{{Code: "A", Fraction: d("1.5")}},
		{{Code: "A", Fraction: d("0.1")}, {Code: "a", Fraction: d("0.2")}},
		{{Code: "A", Fraction: d("0.1"), MinSubtotal: d("-1")}},
	}
	for i, rules := range cases {
		_, err := NewEvaluator(rules...)
		assert.Error(t, err, "case %d", i)
	}
}

func TestRulesFromConfig(t *testing.T) {
	t.Parallel()
	rules, err := RulesFromConfig(map[string]string{"ATTOS10": "0.10", "BIG50": "0.5@500"})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "ATTOS10", rules[0].Code)
	assert.True(t, rules[1].MinSubtotal.Equal(d("500")))

	e, err := NewEvaluator(rules...)
	require.NoError(t, err)
	assert.Equal(t, []string{"ATTOS10", "BIG50"}, e.Codes())

	_, err = RulesFromConfig(map[string]string{"X": "ten"})
	assert.Error(t, err)
	_, err = RulesFromConfig(map[string]string{"X": "0.1@lots"})
	assert.Error(t, err)
}

func TestDeliveryFee(t *testing.T) {
	t.Parallel()
	p := DefaultPricingRules()
	require.NoError(t, p.Validate())

	assert.True(t, p.DeliveryFee(d("198.99")).Equal(d("29")))
	assert.True(t, p.DeliveryFee(d("199")).IsZero(), "threshold is inclusive")
	assert.True(t, p.DeliveryFee(d("500")).IsZero())
	assert.True(t, p.DeliveryFee(decimal.Zero).Equal(d("29")), "below the threshold, even when empty")
}

func TestTaxAndAmountToFreeDelivery(t *testing.T) {
	t.Parallel()
	p := DefaultPricingRules()

	assert.True(t, p.Tax(d("129")).Equal(d("6.45")))
	assert.True(t, p.Tax(decimal.Zero).IsZero())
	assert.True(t, p.AmountToFreeDelivery(d("150")).Equal(d("49")))
	assert.True(t, p.AmountToFreeDelivery(d("250")).IsZero())
}

func TestPricingRulesValidate(t *testing.T) {
	t.Parallel()
	bad := DefaultPricingRules()
	bad.TaxRate = d("2")
	assert.Error(t, bad.Validate())

	bad = DefaultPricingRules()
	bad.FlatDeliveryFee = d("-1")
	assert.Error(t, bad.Validate())
}
