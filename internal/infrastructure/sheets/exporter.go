package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
	"github.com/jhoicas/ecount-sync/pkg/config"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

// Exporter implementa el puerto SheetExporter contra Google Sheets: ubica la
// sub-hoja por título (la crea si falta), la limpia por completo y reescribe
// encabezado y filas. No hay append incremental: la hoja refleja siempre la
// última ejecución.
type Exporter struct {
	svc           *sheets.Service
	spreadsheetID string
	log           *logger.Logger
}

var _ ingest.SheetExporter = (*Exporter)(nil)

// NewExporter construye el servicio de Sheets con la credencial de servicio.
func NewExporter(ctx context.Context, cfg config.SheetsConfig, log *logger.Logger) (*Exporter, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("servicio Sheets: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: cfg.SpreadsheetID, log: log}, nil
}

// Export limpia y reescribe la sub-hoja nombrada con la tabla completa.
func (e *Exporter) Export(ctx context.Context, title string, t schema.Table) error {
	if err := e.ensureSheet(ctx, title); err != nil {
		return err
	}

	if _, err := e.svc.Spreadsheets.Values.
		Clear(e.spreadsheetID, title, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("limpiar hoja %q: %w", title, err)
	}

	values := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	values = append(values, header)
	for _, row := range t.Rows {
		cells := make([]any, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = cellValue(row[col])
		}
		values = append(values, cells)
	}

	if _, err := e.svc.Spreadsheets.Values.
		Update(e.spreadsheetID, title+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("escribir hoja %q: %w", title, err)
	}

	e.log.Info().Str("sheet", title).Int("rows", t.NumRows()).Msg("exportación a Sheets completada")
	return nil
}

// ensureSheet agrega la sub-hoja si no existe en el libro.
func (e *Exporter) ensureSheet(ctx context.Context, title string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("consultar libro: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
		AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
	}}}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("crear hoja %q: %w", title, err)
	}
	e.log.Info().Str("sheet", title).Msg("sub-hoja creada")
	return nil
}

// cellValue aplana un valor de la tabla a algo que Sheets acepte: fechas como
// YYYY-MM-DD y decimales como string exacto.
func cellValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02")
	case decimal.Decimal:
		return val.String()
	case nil:
		return ""
	default:
		return v
	}
}
