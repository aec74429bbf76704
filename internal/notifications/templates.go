package notifications

import (
	"html/template"
)

var customerOrderHTML = template.Must(template.New("customer_order").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Payment successful</h2>
<p>Thank you for your purchase. Your payment reference is <strong>{{.Reference}}</strong>.</p>
<table cellpadding="6" cellspacing="0" border="1" style="border-collapse:collapse">
<tr><th>Order</th><th>Package</th><th>Qty</th><th>Recipients</th><th>Total</th><th>Status</th></tr>
{{range .Lines}}<tr><td>{{.Code}}</td><td>{{.Package}}</td><td>{{.Quantity}}</td><td>{{.Recipients}}</td><td>{{$.Currency}} {{.Total}}</td><td>{{.Status}}</td></tr>
{{end}}</table>
<p><strong>Amount paid: {{.Currency}} {{.Total}}</strong></p>
<p>Track your order any time at <a href="{{.TrackURL}}">{{.TrackURL}}</a>.</p>
</body></html>`))

var operationsOrderHTML = template.Must(template.New("operations_order").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>New order received</h2>
<p>Reference <strong>{{.Reference}}</strong> from {{.Email}}: {{.Currency}} {{.Total}}.</p>
<ul>
{{range .Lines}}<li>{{.Code}}: {{.Quantity}} x {{.Package}} for {{.Recipients}}</li>
{{end}}</ul>
</body></html>`))

var passwordResetHTML = template.Must(template.New("password_reset").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Reset your password</h2>
<p>We received a request to reset the password on your account.</p>
<p><a href="{{.URL}}">Choose a new password</a>. The link expires in {{.ValidFor}}.</p>
<p>If you did not ask for this you can ignore this email.</p>
</body></html>`))
