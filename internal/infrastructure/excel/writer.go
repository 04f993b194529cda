package excel

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ecount-sync/internal/domain/schema"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

const (
	nsSpreadsheet = "urn:schemas-microsoft-com:office:spreadsheet"

	cellTypeString = "String"
	cellTypeNumber = "Number"
)

// Writer genera un snapshot local de la tabla en formato SpreadsheetML
// (Excel 2003 XML): un libro de una sola hoja, encabezado más filas con
// celdas tipadas. Los números (saldos, movimientos) van como Number y el
// resto, fechas incluidas, como String YYYY-MM-DD.
type Writer struct {
	sheetName string
	log       *logger.Logger
}

// NewWriter construye el escritor con el nombre de hoja configurado.
func NewWriter(sheetName string, log *logger.Logger) *Writer {
	if sheetName == "" {
		sheetName = "Inventory"
	}
	return &Writer{sheetName: sheetName, log: log}
}

// Write serializa la tabla en path.
func (w *Writer) Write(path string, t schema.Table) error {
	doc := Build(w.sheetName, t)
	doc.Indent(1)
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("escribir snapshot Excel %s: %w", path, err)
	}
	w.log.Info().Str("path", path).Int("rows", t.NumRows()).Msg("snapshot Excel escrito")
	return nil
}

// Build arma el documento SpreadsheetML en memoria. Separado de Write para
// poder inspeccionar el XML sin tocar disco.
func Build(sheetName string, t schema.Table) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateProcInst("mso-application", `progid="Excel.Sheet"`)

	workbook := doc.CreateElement("Workbook")
	workbook.CreateAttr("xmlns", nsSpreadsheet)
	workbook.CreateAttr("xmlns:ss", nsSpreadsheet)

	worksheet := workbook.CreateElement("Worksheet")
	worksheet.CreateAttr("ss:Name", sheetName)
	table := worksheet.CreateElement("Table")

	header := table.CreateElement("Row")
	for _, col := range t.Columns {
		writeCell(header, cellTypeString, col)
	}

	for _, row := range t.Rows {
		tr := table.CreateElement("Row")
		for _, col := range t.Columns {
			typ, text := cellOf(row[col])
			writeCell(tr, typ, text)
		}
	}
	return doc
}

func writeCell(row *etree.Element, cellType, text string) {
	cell := row.CreateElement("Cell")
	data := cell.CreateElement("Data")
	data.CreateAttr("ss:Type", cellType)
	data.SetText(text)
}

func cellOf(v any) (cellType, text string) {
	switch val := v.(type) {
	case decimal.Decimal:
		return cellTypeNumber, val.String()
	case int:
		return cellTypeNumber, fmt.Sprintf("%d", val)
	case int64:
		return cellTypeNumber, fmt.Sprintf("%d", val)
	case float64:
		return cellTypeNumber, fmt.Sprintf("%g", val)
	case time.Time:
		return cellTypeString, val.Format("2006-01-02")
	case nil:
		return cellTypeString, ""
	default:
		return cellTypeString, fmt.Sprintf("%v", val)
	}
}
