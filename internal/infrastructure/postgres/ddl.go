package postgres

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/ecount-sync/internal/domain/schema"
)

// columnType traduce un tipo lógico del esquema inferido al tipo de columna
// PostgreSQL. RECORD y las columnas REPEATED aterrizan como JSONB: el destino
// relacional no materializa subcampos y el esquema puede evolucionar de forma
// aditiva sin migraciones.
func columnType(f schema.Field) string {
	if f.Repeated || f.Type == schema.TypeRecord {
		return "JSONB"
	}
	switch f.Type {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeNumeric:
		return "NUMERIC"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeFloat:
		return "DOUBLE PRECISION"
	case schema.TypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// createTableSQL genera el CREATE TABLE IF NOT EXISTS para el esquema inferido,
// con identificadores saneados.
func createTableSQL(table string, fields []schema.Field) string {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, fmt.Sprintf("%s %s", pgx.Identifier{f.Name}.Sanitize(), columnType(f)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{table}.Sanitize(), strings.Join(cols, ", "))
}
