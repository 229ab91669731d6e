package export

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	"mercator-hq/custodian/pkg/audit"
)

// SheetName is the worksheet written by XLSXExporter.
const SheetName = "Audit Events"

// XLSXExporter exports audit events as an Excel workbook with one sheet.
type XLSXExporter struct{}

// NewXLSXExporter creates a new XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Format returns "xlsx".
func (e *XLSXExporter) Format() string { return FormatXLSX }

// Export writes events to w as a workbook. The first row is a bold header
// and rows are streamed into the sheet.
func (e *XLSXExporter) Export(ctx context.Context, events []*audit.Event, w io.Writer) error {
	fail := func(err error) error {
		return audit.NewExportError(FormatXLSX, len(events), err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fail(err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fail(err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fail(err)
	}
	if err := sw.SetColWidth(1, 2, 24); err != nil {
		return fail(err)
	}
	if err := sw.SetColWidth(4, 4, 48); err != nil {
		return fail(err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fail(err)
	}

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fail(err)
		}
		values := eventRow(event)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fail(err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fail(err)
	}
	if err := f.Write(w); err != nil {
		return fail(err)
	}
	return nil
}
