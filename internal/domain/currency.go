package domain

// HomeCurrency is the base currency every cross-currency amount is
// normalized to for aggregation.
const HomeCurrency = "TWD"

// CurrencyOption pairs a currency code with a rough default rate to the
// home currency, used only when no realized exchange history exists.
type CurrencyOption struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	DefaultRate float64 `json:"defaultRate"`
}

// CommonCurrencies is the static default rate table.
var CommonCurrencies = []CurrencyOption{
	{Code: "TWD", Name: "新台幣", DefaultRate: 1},
	{Code: "JPY", Name: "日圓", DefaultRate: 0.22},
	{Code: "USD", Name: "美金", DefaultRate: 32.5},
	{Code: "EUR", Name: "歐元", DefaultRate: 35.0},
	{Code: "KRW", Name: "韓元", DefaultRate: 0.024},
	{Code: "CNY", Name: "人民幣", DefaultRate: 4.5},
	{Code: "THB", Name: "泰銖", DefaultRate: 0.9},
	{Code: "GBP", Name: "英鎊", DefaultRate: 41.0},
}

// DefaultRate returns the static rate for a currency code, or 1 for codes
// outside the table.
func DefaultRate(code string) float64 {
	for _, c := range CommonCurrencies {
		if c.Code == code {
			return c.DefaultRate
		}
	}
	return 1
}
