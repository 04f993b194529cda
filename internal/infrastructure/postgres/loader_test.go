package postgres

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ecount-sync/internal/domain/schema"
)

func TestCopyRows_ProyectaYSerializa(t *testing.T) {
	d := time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)
	table := schema.Table{
		Columns: []string{"item_code", "balance", "date", "detail"},
		Rows: []map[string]any{{
			"item_code": "A-001",
			"balance":   decimal.RequireFromString("120.5"),
			"date":      d,
			"detail":    map[string]any{"unit": "caja"},
		}},
	}
	fields := []schema.Field{
		{Name: "item_code", Type: schema.TypeString},
		{Name: "balance", Type: schema.TypeNumeric},
		{Name: "date", Type: schema.TypeTimestamp},
		{Name: "detail", Type: schema.TypeRecord},
	}

	rows, err := copyRows(table, fields)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "A-001", rows[0][0])
	bal, ok := rows[0][1].(decimal.Decimal)
	require.True(t, ok, "el decimal viaja tal cual; lo codifica el codec de pgx")
	assert.True(t, bal.Equal(decimal.RequireFromString("120.5")))
	assert.Equal(t, d, rows[0][2])
	assert.JSONEq(t, `{"unit":"caja"}`, rows[0][3].(string), "RECORD aterriza como JSON para la columna JSONB")
}

func TestCopyRows_ValorAusente(t *testing.T) {
	table := schema.Table{
		Columns: []string{"item_code", "spec"},
		Rows:    []map[string]any{{"item_code": "A-001"}},
	}
	fields := []schema.Field{
		{Name: "item_code", Type: schema.TypeString},
		{Name: "spec", Type: schema.TypeString},
	}

	rows, err := copyRows(table, fields)
	require.NoError(t, err)
	assert.Nil(t, rows[0][1])
}
