package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/ecount-sync/internal/domain/schema"
)

func TestColumnType(t *testing.T) {
	tests := []struct {
		name  string
		field schema.Field
		want  string
	}{
		{"entero", schema.Field{Type: schema.TypeInteger}, "BIGINT"},
		{"decimal", schema.Field{Type: schema.TypeNumeric}, "NUMERIC"},
		{"booleano", schema.Field{Type: schema.TypeBoolean}, "BOOLEAN"},
		{"float", schema.Field{Type: schema.TypeFloat}, "DOUBLE PRECISION"},
		{"texto", schema.Field{Type: schema.TypeString}, "TEXT"},
		{"timestamp", schema.Field{Type: schema.TypeTimestamp}, "TIMESTAMPTZ"},
		{"record", schema.Field{Type: schema.TypeRecord}, "JSONB"},
		{"repetida", schema.Field{Type: schema.TypeString, Repeated: true}, "JSONB"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, columnType(tc.field))
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	fields := []schema.Field{
		{Name: "item_code", Type: schema.TypeString},
		{Name: "balance", Type: schema.TypeNumeric},
		{Name: "date", Type: schema.TypeTimestamp},
	}

	sql := createTableSQL("inventory_balance", fields)

	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "inventory_balance" ("item_code" TEXT, "balance" NUMERIC, "date" TIMESTAMPTZ)`,
		sql)
}

// TestCreateTableSQL_IdentificadoresSaneados: los nombres de columna van
// siempre entre comillas, así un nombre hostil no inyecta DDL.
func TestCreateTableSQL_IdentificadoresSaneados(t *testing.T) {
	fields := []schema.Field{{Name: `x"; DROP TABLE y; --`, Type: schema.TypeString}}

	sql := createTableSQL("t", fields)

	assert.Contains(t, sql, `"x""; DROP TABLE y; --" TEXT`)
}
