package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Paypay0in/my-trippie/internal/domain"
)

type rawTaxRule struct {
	Country     string   `json:"country"`
	Currency    string   `json:"currency"`
	MinSpend    *float64 `json:"minSpend"`
	RefundRate  *float64 `json:"refundRate"`
	Description string   `json:"description"`
}

// FetchTaxRule looks up the tax-refund scheme for a travel country. A nil
// result means the lookup produced nothing usable; a rule with zero
// minimum spend and zero rate is a valid answer meaning the country has
// no refund scheme.
func (c *Client) FetchTaxRule(ctx context.Context, country string) (*domain.TaxRule, error) {
	prompt := fmt.Sprintf(`What is the tourist tax refund (VAT/GST refund) scheme for %s?
Return a single JSON object:
- country: the country name as given
- currency: the local ISO 4217 currency code
- minSpend: minimum single-receipt spend to qualify, in local currency, 0 if no scheme exists
- refundRate: refund rate as a decimal fraction, e.g. 0.10 for 10%%, 0 if no scheme exists
- description: one short sentence in Traditional Chinese describing the scheme

Only output the JSON object.`, country)

	raw, err := c.generateContent(ctx, []contentPart{{Text: prompt}})
	if err != nil {
		return nil, err
	}

	var parsed rawTaxRule
	if err := json.Unmarshal([]byte(cleanJSONString(raw)), &parsed); err != nil {
		return nil, &GeminiError{
			Op:  "parse_tax_rule_json",
			Err: fmt.Errorf("failed to parse tax rule result: %w", err),
		}
	}

	if parsed.MinSpend == nil || parsed.RefundRate == nil {
		return nil, nil
	}

	rule := &domain.TaxRule{
		Country:    country,
		Currency:   strings.ToUpper(strings.TrimSpace(parsed.Currency)),
		MinSpend:   *parsed.MinSpend,
		RefundRate: *parsed.RefundRate,
		Notes:      parsed.Description,
	}
	return rule, nil
}
