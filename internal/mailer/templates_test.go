package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderConfirmationHTML(t *testing.T) {
	html, err := OrderConfirmationHTML(OrderEmailData{
		CustomerName: "Alice",
		OrderID:      12,
		Lines: []OrderEmailLine{
			{ProductName: "Mug", Quantity: 2, LineTotal: 30},
			{ProductName: "Shirt", ImageURL: "https://img.example.com/shirt.png", Quantity: 1, LineTotal: 250},
		},
		Subtotal:   280,
		Shipping:   15,
		Tax:        28,
		GrandTotal: 323,
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Alice")
	assert.Contains(t, html, "Mug")
	assert.Contains(t, html, "https://img.example.com/shirt.png")
	assert.Contains(t, html, "323.00")
}

func TestLowStockHTML(t *testing.T) {
	html, err := LowStockHTML(LowStockData{ProductName: "Mug", Stock: 3})
	require.NoError(t, err)
	assert.Contains(t, html, "Mug")
	assert.Contains(t, html, "3 units")
}

func TestTemplatesEscapeUserInput(t *testing.T) {
	html, err := LowStockHTML(LowStockData{ProductName: `<script>alert(1)</script>`, Stock: 1})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}
