package ingest

import (
	"context"
	"errors"

	"github.com/jhoicas/ecount-sync/internal/domain/schema"
	"github.com/jhoicas/ecount-sync/internal/domain/snapshot"
)

// WriteMode indica si la carga agrega filas o reemplaza el contenido del destino.
type WriteMode string

const (
	WriteAppend  WriteMode = "APPEND"
	WriteReplace WriteMode = "REPLACE"
)

// Fetcher define el puerto de entrada de saldos: el cliente del ERP remoto.
// Puede fallar (incluida la sesión vencida) o devolver vacío para una bodega.
type Fetcher interface {
	// ListInventoryBalance devuelve los registros crudos de saldo de una
	// bodega para la fecha de consulta (YYYYMMDD).
	ListInventoryBalance(ctx context.Context, baseDate, warehouseCode string) ([]snapshot.RawRecord, error)
}

// SessionRenewer reautentica contra el ERP cuando la sesión venció.
type SessionRenewer interface {
	Renew(ctx context.Context) error
}

// LoadClient define el puerto de salida hacia el destino persistente
// (BigQuery o PostgreSQL). La implementación debe garantizar que el
// contenedor destino exista (crearlo si falta) antes de cargar.
type LoadClient interface {
	// Load persiste la tabla con el esquema inferido y el modo de escritura
	// pedido; devuelve la cantidad de filas cargadas.
	Load(ctx context.Context, t schema.Table, fields []schema.Field, mode WriteMode) (int, error)
}

// SheetExporter define el puerto hacia la hoja de cálculo: limpia y
// reescribe por completo una sub-hoja nombrada (sin append incremental).
type SheetExporter interface {
	Export(ctx context.Context, title string, t schema.Table) error
}

// sessionExpirer lo implementan los errores del cliente ERP que señalan
// sesión vencida (el único error del API recuperable, con un solo reintento).
type sessionExpirer interface {
	SessionExpired() bool
}

// IsSessionExpired indica si err señala una sesión vencida del ERP.
func IsSessionExpired(err error) bool {
	var se sessionExpirer
	return errors.As(err, &se) && se.SessionExpired()
}
