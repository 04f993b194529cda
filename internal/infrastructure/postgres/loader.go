package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

// Loader implementa el puerto LoadClient contra PostgreSQL: útil como destino
// local o de staging en lugar de BigQuery. Garantiza la existencia de la tabla
// (DDL derivado del esquema inferido) y carga con COPY dentro de una
// transacción; REPLACE trunca y copia en la misma transacción, así el
// reemplazo es atómico para los lectores.
type Loader struct {
	pool  *pgxpool.Pool
	table string
	log   *logger.Logger
}

var _ ingest.LoadClient = (*Loader)(nil)

// NewLoader construye el cargador para la tabla destino.
func NewLoader(pool *pgxpool.Pool, table string, log *logger.Logger) *Loader {
	return &Loader{pool: pool, table: table, log: log}
}

// Load persiste la tabla con el modo pedido y devuelve las filas cargadas.
func (l *Loader) Load(ctx context.Context, t schema.Table, fields []schema.Field, mode ingest.WriteMode) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createTableSQL(l.table, fields)); err != nil {
		return 0, fmt.Errorf("crear tabla %s: %w", l.table, err)
	}
	if mode == ingest.WriteReplace {
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+pgx.Identifier{l.table}.Sanitize()); err != nil {
			return 0, fmt.Errorf("truncar tabla %s: %w", l.table, err)
		}
	}

	rows, err := copyRows(t, fields)
	if err != nil {
		return 0, err
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{l.table}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy a %s: %w", l.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	l.log.Info().Str("table", l.table).Int64("rows", n).Str("mode", string(mode)).Msg("carga a PostgreSQL completada")
	return int(n), nil
}

// copyRows proyecta la tabla al orden de columnas del esquema. Los valores
// RECORD/REPEATED se serializan a JSON para las columnas JSONB.
func copyRows(t schema.Table, fields []schema.Field) ([][]any, error) {
	out := make([][]any, 0, len(t.Rows))
	for i, row := range t.Rows {
		vals := make([]any, len(fields))
		for j, f := range fields {
			v := row[f.Name]
			if v == nil {
				vals[j] = nil
				continue
			}
			if f.Repeated || f.Type == schema.TypeRecord {
				raw, err := json.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("serializar columna %q de la fila %d: %w", f.Name, i, err)
				}
				vals[j] = string(raw)
				continue
			}
			vals[j] = v
		}
		out = append(out, vals)
	}
	return out, nil
}
