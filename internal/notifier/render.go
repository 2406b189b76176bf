package notifier

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/corray333/backend-labs/cafe/internal/service/models/currency"
	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/shopspring/decimal"
)

const cafeName = "Café R&P"

var funcs = map[string]any{
	"money": func(d decimal.Decimal) string { return currency.Format(d) },
}

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(
	`<h1>Confirm your order at {{.Cafe}}</h1>` +
		`<p>Hi {{.N.EmployeeName}},</p>` +
		`<p>Thanks for your order. To confirm it, please use this verification code:</p>` +
		`<h2 style="font-size: 24px; letter-spacing: 5px; text-align: center; background-color: #f2f2f2; padding: 10px;">{{.N.Code}}</h2>` +
		`<p><strong>Order details:</strong></p>` +
		`<ul>{{range .N.Items}}<li>{{.Quantity}}x {{.Name}} - {{money .LineTotal}}</li>{{end}}</ul>` +
		`<p><strong>Total: {{money .N.Total}}</strong></p>` +
		`<p>Thank you!</p>`,
))

var textBody = texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(
	`Hi {{.N.EmployeeName}},

Thanks for your order. To confirm it, please use this verification code: {{.N.Code}}

Order details:
{{range .N.Items}}- {{.Quantity}}x {{.Name}} - {{money .LineTotal}}
{{end}}
Total: {{money .N.Total}}

Thank you!
`))

type templateData struct {
	Cafe string
	N    notification.Notification
}

// Email is a rendered verification message.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

// Render builds the verification email for n.
func Render(n notification.Notification) (Email, error) {
	data := templateData{Cafe: cafeName, N: n}

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("failed to render html body: %w", err)
	}

	var text bytes.Buffer
	if err := textBody.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("failed to render text body: %w", err)
	}

	return Email{
		Subject: fmt.Sprintf("Your verification code for %s: %s", cafeName, n.Code),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
