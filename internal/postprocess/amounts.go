package postprocess

import (
	"context"
	"log/slog"
	"math"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/fields"
)

// ItemAmountCalculator sets amount = floor(quantity * unitPrice) on every
// item that lacks one. Items whose inputs do not parse are left as they are.
type ItemAmountCalculator struct {
	logger *slog.Logger
}

func (c *ItemAmountCalculator) Process(_ context.Context, data map[string]any) (map[string]any, error) {
	items, ok := itemsOf(data)
	if !ok {
		return data, nil
	}
	for i, item := range items {
		if _, has := item["amount"]; has {
			continue
		}
		qRaw, hasQ := item["quantity"]
		pRaw, hasP := unitPriceOf(item)
		if !hasQ || !hasP {
			continue
		}
		q, okQ := fields.ParseNumber(qRaw)
		p, okP := fields.ParseNumber(pRaw)
		if !okQ || !okP {
			c.logger.Warn("amounts.item.unparsable", "index", i, "quantity", qRaw, "unit_price", pRaw)
			continue
		}
		amount, ok := multiplyFloor(q, p)
		if !ok {
			c.logger.Warn("amounts.item.overflow", "index", i, "quantity", qRaw, "unit_price", pRaw)
			continue
		}
		item["amount"] = amount
	}
	return data, nil
}

// TotalAmountCalculator writes amounts.subtotal (the floored sum of item
// amounts) and its Korean amount words.
type TotalAmountCalculator struct {
	logger *slog.Logger
}

func (c *TotalAmountCalculator) Process(_ context.Context, data map[string]any) (map[string]any, error) {
	items, ok := itemsOf(data)
	if !ok {
		c.logger.Debug("amounts.total.skipped", "reason", "no items")
		return data, nil
	}
	var intSum int64
	var fltSum float64
	overflow := false
	for i, item := range items {
		raw, has := item["amount"]
		if !has {
			continue
		}
		n, ok := fields.ParseNumber(raw)
		if !ok {
			c.logger.Warn("amounts.total.unparsable", "index", i, "amount", raw)
			continue
		}
		if !n.IsInt {
			fltSum += n.Flt
			continue
		}
		if sum, ok := addInt64(intSum, n.Int); ok {
			intSum = sum
		} else {
			overflow = true
		}
	}
	flt, okF := floorToInt64(fltSum)
	subtotal, okS := addInt64(intSum, flt)
	if overflow || !okF || !okS {
		c.logger.Warn("amounts.total.overflow", "items", len(items))
		return data, nil
	}

	amounts := amountsOf(data)
	amounts[constants.KeySubtotal] = subtotal
	amounts[constants.KeyTotalInWords] = KoreanAmount(subtotal)
	return data, nil
}

// TaxCalculator derives tax = floor(subtotal * Rate) and total from
// amounts.subtotal.
type TaxCalculator struct {
	Rate   float64
	logger *slog.Logger
}

func (c *TaxCalculator) Process(_ context.Context, data map[string]any) (map[string]any, error) {
	amounts, ok := data[constants.KeyAmounts].(map[string]any)
	if !ok {
		c.logger.Warn("amounts.tax.skipped", "reason", "no amounts")
		return data, nil
	}
	raw, has := amounts[constants.KeySubtotal]
	if !has {
		c.logger.Warn("amounts.tax.skipped", "reason", "no subtotal")
		return data, nil
	}
	n, ok := fields.ParseNumber(raw)
	if !ok {
		c.logger.Warn("amounts.tax.unparsable", "subtotal", raw)
		return data, nil
	}
	subtotal := n.Int
	if !n.IsInt {
		if subtotal, ok = floorToInt64(n.Flt); !ok {
			c.logger.Warn("amounts.tax.overflow", "subtotal", raw)
			return data, nil
		}
	}

	tax, okT := Tax(subtotal, c.Rate)
	total, okS := addInt64(subtotal, tax)
	if !okT || !okS {
		c.logger.Warn("amounts.tax.overflow", "subtotal", subtotal, "rate", c.Rate)
		return data, nil
	}
	amounts[constants.KeyTax] = tax
	amounts[constants.KeyTotal] = total
	if _, has := amounts[constants.KeyTotalInWords]; has {
		amounts[constants.KeyTotalInWords] = KoreanAmount(total)
	}
	return data, nil
}

// Tax is floor(subtotal * rate), computed on basis points so that 10% of a
// round amount never loses a unit to float error. ok is false when the
// product does not fit in an int64.
func Tax(subtotal int64, rate float64) (tax int64, ok bool) {
	bp, ok := floorToInt64(math.Round(rate * 10000))
	if !ok {
		return 0, false
	}
	scaled, ok := mulInt64(subtotal, bp)
	if !ok {
		return 0, false
	}
	return floorDiv(scaled, 10000), true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func multiplyFloor(a, b fields.Number) (int64, bool) {
	if a.IsInt && b.IsInt {
		return mulInt64(a.Int, b.Int)
	}
	return floorToInt64(a.Float() * b.Float())
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

// floorToInt64 floors f; ok is false for NaN and values outside the int64 range.
func floorToInt64(f float64) (int64, bool) {
	f = math.Floor(f)
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func unitPriceOf(item map[string]any) (any, bool) {
	if v, ok := item["unitPrice"]; ok {
		return v, true
	}
	v, ok := item["unit_price"]
	return v, ok
}

// itemsOf returns the map elements of data["items"]; the maps are shared
// with data so writes land in the result.
func itemsOf(data map[string]any) ([]map[string]any, bool) {
	switch v := data[constants.KeyItems].(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func amountsOf(data map[string]any) map[string]any {
	if m, ok := data[constants.KeyAmounts].(map[string]any); ok {
		return m
	}
	m := make(map[string]any)
	data[constants.KeyAmounts] = m
	return m
}
