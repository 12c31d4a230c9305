package export

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"example.com/backstage/services/challan/internal/models"
)

// SheetName is the worksheet holding the register
const SheetName = "Challans"

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	titleRow  = 1
	headerRow = 4
	firstRow  = 5
)

var headers = []string{"ID", "Challan No", "Customer", "Created At", "Total Items", "Total Price", "Download URL"}

// FileName returns the register file name for a run at t
func FileName(t time.Time) string {
	return fmt.Sprintf("challans_%s.xlsx", t.Format("20060102_150405"))
}

// WriteRegister renders summaries as an .xlsx workbook
func WriteRegister(title string, summaries []models.ChallanSummary, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, errors.Wrap(err, "failed to name register sheet")
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	f.SetCellValue(SheetName, "A1", title)
	f.SetCellStyle(SheetName, "A1", "A1", styles.title)
	f.SetRowHeight(SheetName, titleRow, 30)
	f.SetCellValue(SheetName, "A2", fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04:05")))

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(SheetName, cell, header)
		f.SetCellStyle(SheetName, cell, cell, styles.header)
	}
	f.SetColWidth(SheetName, "A", "A", 8)
	f.SetColWidth(SheetName, "B", "D", 22)
	f.SetColWidth(SheetName, "E", "F", 14)
	f.SetColWidth(SheetName, "G", "G", 28)

	totalItems := decimal.Zero
	totalPrice := decimal.Zero
	for i, s := range summaries {
		row := firstRow + i
		values := []interface{}{
			s.ID,
			s.ChallanNo,
			s.CustomerName,
			s.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			s.TotalItems.InexactFloat64(),
			s.TotalPrice.InexactFloat64(),
			s.DownloadURL,
		}
		if err := setRow(f, row, values); err != nil {
			return nil, err
		}
		f.SetCellStyle(SheetName, cellName(6, row), cellName(6, row), styles.money)

		totalItems = totalItems.Add(s.TotalItems)
		totalPrice = totalPrice.Add(s.TotalPrice)
	}

	summaryRow := firstRow + len(summaries) + 1
	f.SetCellValue(SheetName, cellName(1, summaryRow), "Total")
	f.SetCellValue(SheetName, cellName(5, summaryRow), totalItems.InexactFloat64())
	f.SetCellValue(SheetName, cellName(6, summaryRow), totalPrice.InexactFloat64())
	f.SetCellStyle(SheetName, cellName(1, summaryRow), cellName(6, summaryRow), styles.summary)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write register workbook")
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	if err := f.SetSheetRow(SheetName, cellName(1, row), &values); err != nil {
		return errors.Wrapf(err, "failed to write register row %d", row)
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

type styles struct {
	title   int
	header  int
	money   int
	summary int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	var s styles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return s, errors.Wrap(err, "failed to create title style")
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, errors.Wrap(err, "failed to create header style")
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: 2}); err != nil {
		return s, errors.Wrap(err, "failed to create money style")
	}
	if s.summary, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: 2,
	}); err != nil {
		return s, errors.Wrap(err, "failed to create summary style")
	}
	return s, nil
}
