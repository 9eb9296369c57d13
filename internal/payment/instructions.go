package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RenderInstructions fills the {{amount}} and {{reference}} placeholders of
// an alternate method's instructions.
func (m AlternateMethod) RenderInstructions(amount decimal.Decimal, currency, reference string) string {
	r := strings.NewReplacer(
		"{{amount}}", currency+" "+amount.StringFixed(2),
		"{{reference}}", reference,
	)
	return r.Replace(m.Instructions)
}
