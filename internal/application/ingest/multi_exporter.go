package ingest

import (
	"context"
	"errors"

	"github.com/jhoicas/ecount-sync/internal/domain/schema"
)

// MultiExporter reparte la exportación entre varios destinos secundarios
// (Sheets, snapshot local). Intenta todos aunque alguno falle y devuelve los
// errores acumulados.
type MultiExporter []SheetExporter

var _ SheetExporter = (MultiExporter)(nil)

// Export exporta la tabla a cada destino.
func (m MultiExporter) Export(ctx context.Context, title string, t schema.Table) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(ctx, title, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
