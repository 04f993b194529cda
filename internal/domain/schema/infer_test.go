package schema_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ecount-sync/internal/domain"
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
)

func TestInfer_Escalares(t *testing.T) {
	table := schema.Table{
		Columns: []string{"item_code", "balance", "date", "units", "active", "ratio"},
		Rows: []map[string]any{{
			"item_code": "A-001",
			"balance":   decimal.RequireFromString("120.5"),
			"date":      time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC),
			"units":     int64(3),
			"active":    true,
			"ratio":     0.25,
		}},
	}

	fields, err := schema.Infer(table)
	require.NoError(t, err)
	require.Len(t, fields, 6)

	expected := map[string]schema.FieldType{
		"item_code": schema.TypeString,
		"balance":   schema.TypeNumeric,
		"date":      schema.TypeTimestamp,
		"units":     schema.TypeInteger,
		"active":    schema.TypeBoolean,
		"ratio":     schema.TypeFloat,
	}
	for i, col := range table.Columns {
		assert.Equal(t, col, fields[i].Name, "el orden de columnas se preserva")
		assert.Equal(t, expected[col], fields[i].Type, "columna %s", col)
		assert.False(t, fields[i].Repeated)
	}
}

// TestInfer_PrimerValorNoNulo verifica que el tipo se muestrea del primer
// valor no nulo, no de la primera fila.
func TestInfer_PrimerValorNoNulo(t *testing.T) {
	table := schema.Table{
		Columns: []string{"spec"},
		Rows: []map[string]any{
			{"spec": nil},
			{"spec": "5mm"},
		},
	}

	fields, err := schema.Infer(table)
	require.NoError(t, err)
	assert.Equal(t, schema.TypeString, fields[0].Type)
}

func TestInfer_ColumnaVacia(t *testing.T) {
	table := schema.Table{
		Columns: []string{"spec"},
		Rows:    []map[string]any{{"spec": nil}, {"spec": nil}},
	}

	_, err := schema.Infer(table)
	require.Error(t, err, "sin valor que muestrear no hay tipo que inferir")
	assert.ErrorIs(t, err, domain.ErrSchemaInference)
}

func TestInfer_ColumnaRepetida(t *testing.T) {
	table := schema.Table{
		Columns: []string{"tags"},
		Rows:    []map[string]any{{"tags": []any{"a", "b"}}},
	}

	fields, err := schema.Infer(table)
	require.NoError(t, err)
	assert.Equal(t, schema.TypeString, fields[0].Type)
	assert.True(t, fields[0].Repeated)
}

func TestInfer_SecuenciaVacia(t *testing.T) {
	table := schema.Table{
		Columns: []string{"tags"},
		Rows:    []map[string]any{{"tags": []any{}}},
	}

	_, err := schema.Infer(table)
	assert.ErrorIs(t, err, domain.ErrSchemaInference)
}

// TestInfer_Record verifica el caso recursivo: una columna con objeto anidado
// produce un RECORD cuyos subcampos coinciden con inferir directamente la
// columna aplanada.
func TestInfer_Record(t *testing.T) {
	nested := map[string]any{
		"qty":  decimal.RequireFromString("10"),
		"unit": "caja",
	}
	table := schema.Table{
		Columns: []string{"detail"},
		Rows:    []map[string]any{{"detail": nested}},
	}

	fields, err := schema.Infer(table)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, schema.TypeRecord, fields[0].Type)

	flat := schema.Table{
		Columns: []string{"qty", "unit"},
		Rows:    []map[string]any{nested},
	}
	direct, err := schema.Infer(flat)
	require.NoError(t, err)
	assert.ElementsMatch(t, direct, fields[0].Fields,
		"los subcampos del RECORD deben coincidir con la inferencia directa de la columna aplanada")
}

// TestInfer_RecordRepetido: secuencia de objetos anidados.
func TestInfer_RecordRepetido(t *testing.T) {
	table := schema.Table{
		Columns: []string{"movements"},
		Rows: []map[string]any{{
			"movements": []any{map[string]any{"kind": "in", "qty": decimal.RequireFromString("5")}},
		}},
	}

	fields, err := schema.Infer(table)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, schema.TypeRecord, fields[0].Type)
	assert.True(t, fields[0].Repeated)
	require.Len(t, fields[0].Fields, 2)
	// Subcampos en orden lexicográfico determinista.
	assert.Equal(t, "kind", fields[0].Fields[0].Name)
	assert.Equal(t, "qty", fields[0].Fields[1].Name)
	assert.Equal(t, schema.TypeNumeric, fields[0].Fields[1].Type)
}

func TestInfer_TipoNoSoportado(t *testing.T) {
	table := schema.Table{
		Columns: []string{"weird"},
		Rows:    []map[string]any{{"weird": make(chan int)}},
	}

	_, err := schema.Infer(table)
	assert.ErrorIs(t, err, domain.ErrSchemaInference)
}
