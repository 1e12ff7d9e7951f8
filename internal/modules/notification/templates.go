package notification

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

type kind string

const (
	kindConfirmation kind = "confirmation"
	kindAdminPaid    kind = "admin_paid"
	kindAdminNew     kind = "admin_new"
)

var subjects = map[kind]string{
	kindConfirmation: "Booking confirmed - {{.Reference}}",
	kindAdminPaid:    "Payment received - {{.Reference}}",
	kindAdminNew:     "New booking - {{.Reference}}",
}

const summaryHTML = `<table>
<tr><td>Reference</td><td><strong>{{.Reference}}</strong></td></tr>
<tr><td>Tour</td><td>{{.TourName}}</td></tr>
<tr><td>Date</td><td>{{.TourDate}}</td></tr>
<tr><td>Passengers</td><td>{{.Adults}} adults, {{.Children}} children ({{.TotalPax}} total)</td></tr>
<tr><td>Total</td><td>{{.Money .TotalPayment}}</td></tr>
<tr><td>Paid</td><td>{{.Money .Deposit}}</td></tr>
<tr><td>Balance</td><td>{{.Money .RemainingBalance}}</td></tr>
</table>`

const summaryText = `Reference: {{.Reference}}
Tour: {{.TourName}}
Date: {{.TourDate}}
Passengers: {{.Adults}} adults, {{.Children}} children ({{.TotalPax}} total)
Total: {{.Money .TotalPayment}}
Paid: {{.Money .Deposit}}
Balance: {{.Money .RemainingBalance}}
`

var bodies = map[kind][2]string{
	kindConfirmation: {
		`<p>Dear {{.CustomerName}},</p><p>thank you, your payment was received and your booking is confirmed.</p>{{template "summary" .}}<p>Please keep your reference at hand on the day of the tour.</p>`,
		"Dear {{.CustomerName}},\n\nthank you, your payment was received and your booking is confirmed.\n\n{{template \"summary\" .}}\nPlease keep your reference at hand on the day of the tour.\n",
	},
	kindAdminPaid: {
		`<p>Payment {{.PaymentID}} settled booking {{.Reference}}.</p><p>Customer: {{.CustomerName}} &lt;{{.CustomerEmail}}&gt; {{.CustomerPhone}}</p>{{template "summary" .}}`,
		"Payment {{.PaymentID}} settled booking {{.Reference}}.\nCustomer: {{.CustomerName}} <{{.CustomerEmail}}> {{.CustomerPhone}}\n\n{{template \"summary\" .}}",
	},
	kindAdminNew: {
		`<p>A new booking is awaiting payment.</p><p>Customer: {{.CustomerName}} &lt;{{.CustomerEmail}}&gt; {{.CustomerPhone}}</p>{{template "summary" .}}{{if .Notes}}<p>Notes: {{.Notes}}</p>{{end}}`,
		"A new booking is awaiting payment.\nCustomer: {{.CustomerName}} <{{.CustomerEmail}}> {{.CustomerPhone}}\n\n{{template \"summary\" .}}{{if .Notes}}Notes: {{.Notes}}\n{{end}}",
	},
}

type rendered struct {
	subject string
	html    string
	text    string
}

type templates struct {
	subject map[kind]*texttemplate.Template
	html    map[kind]*htmltemplate.Template
	text    map[kind]*texttemplate.Template
}

func mustParseTemplates() *templates {
	t := &templates{
		subject: map[kind]*texttemplate.Template{},
		html:    map[kind]*htmltemplate.Template{},
		text:    map[kind]*texttemplate.Template{},
	}
	for k, body := range bodies {
		t.subject[k] = texttemplate.Must(texttemplate.New(string(k)).Parse(subjects[k]))

		h := htmltemplate.Must(htmltemplate.New("summary").Parse(summaryHTML))
		t.html[k] = htmltemplate.Must(h.New(string(k)).Parse(body[0]))

		tx := texttemplate.Must(texttemplate.New("summary").Parse(summaryText))
		t.text[k] = texttemplate.Must(tx.New(string(k)).Parse(body[1]))
	}
	return t
}

func (t *templates) render(k kind, bc BookingContext) (rendered, error) {
	var subj, html, text strings.Builder
	if err := t.subject[k].Execute(&subj, bc); err != nil {
		return rendered{}, err
	}
	if err := t.html[k].ExecuteTemplate(&html, string(k), bc); err != nil {
		return rendered{}, err
	}
	if err := t.text[k].ExecuteTemplate(&text, string(k), bc); err != nil {
		return rendered{}, err
	}
	return rendered{subject: subj.String(), html: html.String(), text: text.String()}, nil
}
