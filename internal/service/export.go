package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Paypay0in/my-trippie/internal/domain"
)

var exportHeaders = []string{
	"日期", "階段", "分類", "付款方式", "項目", "原幣金額", "幣別",
	"匯率", "手續費(TWD)", "總台幣金額", "付款人", "分攤人/分帳詳情",
}

// ExportCSV renders every draft expense as one CSV row, UTF-8 with a BOM
// so spreadsheet apps decode the Chinese labels correctly.
func (s *LedgerServiceImpl) ExportCSV(ctx context.Context) (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := map[string]string{domain.SelfID: "我"}
	for _, c := range s.draft.Companions {
		names[c.ID] = c.Name
	}

	var b strings.Builder
	b.WriteString("\uFEFF")
	b.WriteString(strings.Join(exportHeaders, ","))

	for _, e := range s.draft.Expenses {
		payer, ok := names[e.PayerID]
		if !ok {
			payer = "未知"
		}

		var detail string
		if e.SplitMethod == domain.SplitEqual {
			parts := make([]string, 0, len(e.Beneficiaries))
			for _, id := range e.Beneficiaries {
				parts = append(parts, names[id])
			}
			detail = strings.Join(parts, ";")
		} else {
			parts := make([]string, 0, len(e.SplitAllocations))
			for _, id := range sortedKeys(e.SplitAllocations) {
				name, ok := names[id]
				if !ok {
					name = "未知"
				}
				parts = append(parts, fmt.Sprintf("%s:$%d", name, int64(math.Round(e.SplitAllocations[id]))))
			}
			detail = strings.Join(parts, ";")
		}

		row := []string{
			e.Date,
			phaseLabel(e.Phase),
			string(e.Category),
			string(e.PaymentMethod),
			`"` + e.Description + `"`,
			formatAmount(e.Amount),
			e.Currency,
			formatAmount(e.ExchangeRate),
			formatAmount(e.HandlingFee),
			formatAmount(e.HomeAmount),
			payer,
			`"` + detail + `"`,
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(row, ","))
	}

	filename := fmt.Sprintf("Trippie_Expenses_%s.csv", s.now().Format("2006-01-02"))
	return filename, []byte(b.String())
}

// phaseLabel folds summary into the post-trip label, matching how rows
// have always been exported.
func phaseLabel(p domain.Phase) string {
	switch p {
	case domain.PhasePre:
		return domain.PhaseLabels[domain.PhasePre]
	case domain.PhaseDuring:
		return domain.PhaseLabels[domain.PhaseDuring]
	default:
		return domain.PhaseLabels[domain.PhasePost]
	}
}

// formatAmount prints a float without trailing zeros.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
