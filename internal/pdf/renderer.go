package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/models"
)

// Layout of the challan table, in millimetres
const (
	colQuantity    = 30.0
	colDescription = 80.0
	colPrice       = 30.0
	colTotal       = 30.0
	rowHeight      = 10.0
	lineHeight     = 10.0
	bottomMargin   = 15.0

	fontFamily     = "Helvetica"
	utf8FontFamily = "ChallanUnicode"
	dateLayout     = "02-01-2006"
)

var tableHeader = [4]string{"Quantity", "Description", "Price", "Total"}

// Row is one rendered table row
type Row struct {
	Quantity    string
	Description string
	Price       string
	Total       string
}

// String renders the row the way it reads on the page
func (r Row) String() string {
	return strings.Join([]string{r.Quantity, r.Description, r.Price, r.Total}, " | ")
}

// Table holds the cell strings of a challan before layout
type Table struct {
	Rows  []Row
	Total string
}

// Renderer produces challan documents
type Renderer struct {
	title          string
	currencyPrefix string
	compress       bool
	fontFile       string
	now            func() time.Time
}

// NewRenderer creates a renderer from the document settings
func NewRenderer(cfg config.DocumentConfig) *Renderer {
	return &Renderer{
		title:          cfg.Title,
		currencyPrefix: cfg.CurrencyPrefix,
		compress:       cfg.Compress,
		fontFile:       cfg.FontFile,
		now:            time.Now,
	}
}

// WithClock returns a copy of the renderer that dates documents with now
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	clone := *r
	clone.now = now
	return &clone
}

// Currency formats an amount with the configured prefix and two decimals
func (r *Renderer) Currency(amount decimal.Decimal) string {
	return r.currencyPrefix + amount.StringFixed(2)
}

// BuildTable validates items and computes the table cells
func (r *Renderer) BuildTable(items []models.LineItem) (*Table, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	table := &Table{Rows: make([]Row, 0, len(items))}
	grand := decimal.Zero
	for _, item := range items {
		lineTotal := item.Total()
		grand = grand.Add(lineTotal)
		table.Rows = append(table.Rows, Row{
			Quantity:    item.Quantity.String(),
			Description: item.Description,
			Price:       r.Currency(item.Price),
			Total:       r.Currency(lineTotal),
		})
	}
	table.Total = r.Currency(grand)

	return table, nil
}

// ValidateItems rejects item lists that cannot be rendered
func ValidateItems(items []models.LineItem) error {
	if len(items) == 0 {
		return models.NewValidationError("Items must be a non-empty array", "items")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return invalidItem(i)
		}
		if item.Quantity.IsNegative() || item.Price.IsNegative() {
			return models.NewValidationError(
				fmt.Sprintf("Invalid item at index %d. Quantity and price must not be negative", i), "items")
		}
	}
	return nil
}

func invalidItem(i int) *models.ValidationError {
	return models.NewValidationError(
		fmt.Sprintf("Invalid item at index %d. Each item must have quantity and description", i), "items")
}

// Render lays out the challan and returns the PDF bytes
func (r *Renderer) Render(customerName, challanNo string, items []models.LineItem) ([]byte, error) {
	table, err := r.BuildTable(items)
	if err != nil {
		return nil, err
	}

	// dated in UTC like the stored created_at and the list filters
	now := r.now().UTC()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(r.compress)
	doc.SetCreationDate(now)
	doc.SetModificationDate(now)
	doc.SetCatalogSort(true)
	doc.SetTitle(fmt.Sprintf("Challan %s", challanNo), true)
	doc.SetAutoPageBreak(false, bottomMargin)

	family, tr, err := r.setupFont(doc)
	if err != nil {
		return nil, err
	}

	doc.AddPage()
	doc.SetFont(family, "", 12)
	doc.CellFormat(0, lineHeight, tr(r.title), "", 1, "C", false, 0, "")
	doc.CellFormat(0, lineHeight, "Date: "+now.Format(dateLayout), "", 1, "R", false, 0, "")
	doc.CellFormat(0, lineHeight, tr("Customer: "+customerName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, lineHeight, tr("Challan No: "+challanNo), "", 1, "L", false, 0, "")
	doc.Ln(lineHeight)

	r.writeHeader(doc, family)

	doc.SetFont(family, "", 10)
	for _, row := range table.Rows {
		if r.needsBreak(doc) {
			doc.AddPage()
			r.writeHeader(doc, family)
			doc.SetFont(family, "", 10)
		}
		doc.CellFormat(colQuantity, rowHeight, row.Quantity, "1", 0, "C", false, 0, "")
		doc.CellFormat(colDescription, rowHeight, tr(row.Description), "1", 0, "L", false, 0, "")
		doc.CellFormat(colPrice, rowHeight, tr(row.Price), "1", 0, "R", false, 0, "")
		doc.CellFormat(colTotal, rowHeight, tr(row.Total), "1", 1, "R", false, 0, "")
	}

	if r.needsBreak(doc) {
		doc.AddPage()
	}
	doc.SetFont(family, "B", 10)
	doc.CellFormat(colQuantity+colDescription+colPrice, rowHeight, "Total", "1", 0, "R", false, 0, "")
	doc.CellFormat(colTotal, rowHeight, tr(table.Total), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to render challan document")
	}

	return buf.Bytes(), nil
}

// setupFont picks the font family and the text translator. The core fonts
// only cover cp1252; a configured TrueType file is embedded for everything else.
func (r *Renderer) setupFont(doc *fpdf.Fpdf) (string, func(string) string, error) {
	if r.fontFile == "" {
		return fontFamily, doc.UnicodeTranslatorFromDescriptor(""), nil
	}

	doc.AddUTF8Font(utf8FontFamily, "", r.fontFile)
	doc.AddUTF8Font(utf8FontFamily, "B", r.fontFile)
	if err := doc.Error(); err != nil {
		return "", nil, errors.Wrapf(err, "failed to load font %s", r.fontFile)
	}
	return utf8FontFamily, func(s string) string { return s }, nil
}

func (r *Renderer) writeHeader(doc *fpdf.Fpdf, family string) {
	doc.SetFont(family, "B", 10)
	widths := [4]float64{colQuantity, colDescription, colPrice, colTotal}
	for i, label := range tableHeader {
		ln := 0
		if i == len(tableHeader)-1 {
			ln = 1
		}
		doc.CellFormat(widths[i], rowHeight, label, "1", ln, "C", false, 0, "")
	}
}

func (r *Renderer) needsBreak(doc *fpdf.Fpdf) bool {
	_, pageHeight := doc.GetPageSize()
	return doc.GetY()+rowHeight > pageHeight-bottomMargin
}
