package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Paypay0in/my-trippie/internal/domain"
)

// ExtractedExpense is the structured result of an AI extraction pass.
// All fields are best-effort: absence of an amount means the model found
// no expense in the input.
type ExtractedExpense struct {
	Description     string  `json:"description"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Category        string  `json:"category"`
	PaymentMethod   string  `json:"paymentMethod"`
	Date            string  `json:"date"`
	Country         string  `json:"country"`
	IsUncertain     bool    `json:"isUncertain"`
	TravelStartDate string  `json:"travelStartDate"`
	TravelEndDate   string  `json:"travelEndDate"`
}

// rawExtraction uses a pointer amount so "no amount found" is
// distinguishable from a literal zero.
type rawExtraction struct {
	Description     string   `json:"description"`
	Amount          *float64 `json:"amount"`
	Currency        string   `json:"currency"`
	Category        string   `json:"category"`
	PaymentMethod   string   `json:"paymentMethod"`
	Date            string   `json:"date"`
	Country         string   `json:"country"`
	IsUncertain     bool     `json:"isUncertain"`
	TravelStartDate string   `json:"travelStartDate"`
	TravelEndDate   string   `json:"travelEndDate"`
}

func categoryList() string {
	names := make([]string, 0, len(domain.AllCategories))
	for _, c := range domain.AllCategories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func paymentMethodList() string {
	names := make([]string, 0, len(domain.AllPaymentMethods))
	for _, m := range domain.AllPaymentMethods {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func extractionPrompt(intro string) string {
	return fmt.Sprintf(`%s
Return a single JSON object with these fields:
- description: short item description in Traditional Chinese
- amount: numeric amount as printed, omit or null if no amount is present
- currency: ISO 4217 currency code, e.g. TWD, JPY, USD
- category: one of [%s]
- paymentMethod: one of [%s]
- date: the expense date as YYYY-MM-DD if visible
- country: the country of the expense in Traditional Chinese, e.g. 日本
- isUncertain: true if you are unsure about the amount or currency
- travelStartDate, travelEndDate: YYYY-MM-DD travel dates if the input is a flight or hotel booking spanning dates

Only output the JSON object.`, intro, categoryList(), paymentMethodList())
}

// ExtractFromText asks the model to parse a free-form expense sentence.
// It returns nil without error when the text contains no recognizable
// amount.
func (c *Client) ExtractFromText(ctx context.Context, text string) (*ExtractedExpense, error) {
	prompt := extractionPrompt("Parse the following expense description written by a traveler:\n\n" + text + "\n")
	raw, err := c.generateContent(ctx, []contentPart{{Text: prompt}})
	if err != nil {
		return nil, err
	}
	return parseExtraction(raw)
}

// ExtractFromImage asks the model to read a receipt, invoice or booking
// screenshot. The image is passed inline as base64 with its MIME type.
func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType string) (*ExtractedExpense, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	prompt := extractionPrompt("Read this receipt, invoice or booking confirmation image and extract the expense.")
	parts := []contentPart{
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		{Text: prompt},
	}
	raw, err := c.generateContent(ctx, parts)
	if err != nil {
		return nil, err
	}
	return parseExtraction(raw)
}

func parseExtraction(raw string) (*ExtractedExpense, error) {
	cleaned := cleanJSONString(raw)

	var parsed rawExtraction
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &GeminiError{
			Op:  "parse_extraction_json",
			Err: fmt.Errorf("failed to parse extraction result: %w", err),
		}
	}

	// No amount means the model found nothing billable in the input.
	if parsed.Amount == nil {
		return nil, nil
	}

	result := &ExtractedExpense{
		Description:     parsed.Description,
		Amount:          *parsed.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(parsed.Currency)),
		Category:        parsed.Category,
		PaymentMethod:   parsed.PaymentMethod,
		Date:            parsed.Date,
		Country:         parsed.Country,
		IsUncertain:     parsed.IsUncertain,
		TravelStartDate: parsed.TravelStartDate,
		TravelEndDate:   parsed.TravelEndDate,
	}
	if result.Currency == "" {
		result.Currency = domain.HomeCurrency
	}
	return result, nil
}
