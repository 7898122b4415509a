package receipt

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jung-kurt/gofpdf"

	"github.com/laptopshop/order-service/internal/order"
)

const brandLine = "LaptopShop.com"

// Generator renders order receipts as single-page PDF documents and writes
// them through a Store.
type Generator struct {
	store Store
}

func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Generate renders a receipt for the order and returns the identifier the
// store saved it under. The caller decides whether a failure here is fatal
// to the enclosing workflow.
func (g *Generator) Generate(ord *order.Order, username string) (string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Order Information", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Ordered by user: "+username, "", 1, "L", false, 0, "")
	pdf.Ln(8)

	for _, row := range tableRows(ord) {
		for _, cell := range row {
			pdf.CellFormat(63, 8, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(8)

	pdf.CellFormat(0, 8, "Total Price: "+ord.Total.String(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, brandLine, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", fmt.Errorf("failed to render receipt for order %s: %w", ord.ID, err)
	}

	name, err := fileName(username)
	if err != nil {
		return "", err
	}

	path, err := g.store.Save(name, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to store receipt for order %s: %w", ord.ID, err)
	}

	return path, nil
}

// tableRows builds the item grid: a header row followed by one row per order
// item, in the order the items appear on the order.
func tableRows(ord *order.Order) [][]string {
	rows := make([][]string, 0, len(ord.Items)+1)
	rows = append(rows, []string{"Product Name", "Price", "Quantity"})

	for _, item := range ord.Items {
		rows = append(rows, []string{
			item.ProductName,
			item.PricePerUnit.String(),
			strconv.Itoa(item.Quantity),
		})
	}

	return rows
}

// fileName derives the receipt name from the buyer and the current time.
// The second-resolution timestamp alone can collide for two same-second
// orders by the same user, so a short random suffix is appended.
func fileName(username string) (string, error) {
	suffix, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate receipt name suffix: %w", err)
	}

	stamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	return fmt.Sprintf("User_%s_%s_%s.pdf", username, stamp, hex.EncodeToString(suffix.Bytes()[:4])), nil
}
