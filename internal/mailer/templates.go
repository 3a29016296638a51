package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// OrderEmailLine is one purchased line rendered in an order email.
type OrderEmailLine struct {
	ProductName string
	ImageURL    string
	Quantity    int
	LineTotal   float64
}

// OrderEmailData feeds the order confirmation and payment-completed mails.
type OrderEmailData struct {
	CustomerName string
	OrderID      int64
	Lines        []OrderEmailLine
	Subtotal     float64
	Shipping     float64
	Tax          float64
	GrandTotal   float64
}

// LowStockData feeds the merchant low-stock alert.
type LowStockData struct {
	ProductName string
	Stock       int
}

// OrderConfirmationHTML renders the order confirmation body.
func OrderConfirmationHTML(data OrderEmailData) (string, error) {
	return render("orderConfirmation", orderConfirmationTemplate, data)
}

// PaymentCompletedHTML renders the payment-completed body.
func PaymentCompletedHTML(data OrderEmailData) (string, error) {
	return render("paymentCompleted", paymentCompletedTemplate, data)
}

// LowStockHTML renders the merchant low-stock alert body.
func LowStockHTML(data LowStockData) (string, error) {
	return render("lowStock", lowStockTemplate, data)
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.String(), nil
}

const orderConfirmationTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2c7be5; color: white; padding: 20px; text-align: center; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        th, td { padding: 8px; border-bottom: 1px solid #ddd; text-align: left; }
        .totals td { border: none; padding: 4px 8px; }
        .footer { padding: 20px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>Thank you for your order, {{.CustomerName}}!</h1></div>
        <table>
            <tr><th>Product</th><th>Quantity</th><th>Price</th></tr>
            {{range .Lines}}
            <tr>
                <td>{{if .ImageURL}}<img src="{{.ImageURL}}" width="48" alt=""> {{end}}{{.ProductName}}</td>
                <td>{{.Quantity}}</td>
                <td>{{printf "%.2f" .LineTotal}}</td>
            </tr>
            {{end}}
        </table>
        <table class="totals">
            <tr><td>Subtotal</td><td>{{printf "%.2f" .Subtotal}}</td></tr>
            <tr><td>Shipping</td><td>{{printf "%.2f" .Shipping}}</td></tr>
            <tr><td>Tax</td><td>{{printf "%.2f" .Tax}}</td></tr>
            <tr><td><strong>Total</strong></td><td><strong>{{printf "%.2f" .GrandTotal}}</strong></td></tr>
        </table>
        <div class="footer"><p>This email was sent automatically, please do not reply.</p></div>
    </div>
</body>
</html>
`

const paymentCompletedTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #00b274; color: white; padding: 20px; text-align: center; }
        .footer { padding: 20px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>Payment received</h1></div>
        <p>Hi {{.CustomerName}},</p>
        <p>Your payment for order #{{.OrderID}} of {{printf "%.2f" .GrandTotal}} has been completed.</p>
        <div class="footer"><p>This email was sent automatically, please do not reply.</p></div>
    </div>
</body>
</html>
`

const lowStockTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .warning { color: #e74c3c; font-weight: bold; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Low stock alert</h1>
        <p class="warning">Product "{{.ProductName}}" is down to {{.Stock}} units.</p>
        <p>Restock soon to avoid missed orders.</p>
    </div>
</body>
</html>
`
