package notify

import (
	"bytes"
	"text/template"

	"storefront-be/internal/sale"
)

const ConfirmationSubject = "Order Completed"

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`Hello {{.Name}},

Thank you for your order #{{.Sale.ID}}.

{{range .Sale.Lines}}- {{.Description}} x {{.Quantity}} @ {{.UnitPrice.StringFixed 2}} = {{.Amount.StringFixed 2}}
{{end}}
Total: {{.Sale.Currency}} {{.Sale.TotalAmount.StringFixed 2}}

You can follow your order at {{.OrderURL}}
`))

type Confirmation struct {
	Name     string
	Email    string
	OrderURL string
	Sale     *sale.Sale
}

// RenderConfirmation builds the order confirmation email.
func RenderConfirmation(from string, c Confirmation) (Message, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, c); err != nil {
		return Message{}, err
	}
	return Message{
		To:      c.Email,
		From:    from,
		Subject: ConfirmationSubject,
		Body:    buf.String(),
		SaleID:  c.Sale.ID,
	}, nil
}
