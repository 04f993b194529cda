package excel

import (
	"context"
	"path/filepath"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
)

// FileExporter adapta el Writer al puerto SheetExporter: cada exportación
// escribe <dir>/<title>.xml, reemplazando el snapshot anterior si existe.
type FileExporter struct {
	dir    string
	writer *Writer
}

var _ ingest.SheetExporter = (*FileExporter)(nil)

// NewFileExporter construye el exportador de snapshots locales.
func NewFileExporter(dir string, writer *Writer) *FileExporter {
	return &FileExporter{dir: dir, writer: writer}
}

// Export escribe el snapshot de la tabla; title llega ya con la fecha de la
// ejecución (ej. inventory_balance-20240131).
func (e *FileExporter) Export(_ context.Context, title string, t schema.Table) error {
	return e.writer.Write(filepath.Join(e.dir, title+".xml"), t)
}
