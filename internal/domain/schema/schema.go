package schema

// FieldType es el tipo lógico de una columna del destino.
type FieldType string

const (
	TypeInteger   FieldType = "INTEGER"
	TypeNumeric   FieldType = "NUMERIC" // decimal exacto (saldos y deltas)
	TypeBoolean   FieldType = "BOOLEAN"
	TypeFloat     FieldType = "FLOAT"
	TypeString    FieldType = "STRING"
	TypeTimestamp FieldType = "TIMESTAMP"
	TypeRecord    FieldType = "RECORD" // objeto anidado con subcampos
)

// Field describe una columna inferida: nombre, tipo, cardinalidad y,
// para RECORD, sus subcampos.
type Field struct {
	Name     string
	Type     FieldType
	Repeated bool // la columna contiene una secuencia de valores por fila
	Fields   []Field
}

// Table es el modelo tabular que viaja hacia los destinos de carga:
// columnas con orden explícito y filas de valores escalares o anidados
// (decimal.Decimal, int64, bool, float64, string, time.Time,
// map[string]any, []any).
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// NumRows devuelve la cantidad de filas.
func (t Table) NumRows() int { return len(t.Rows) }

// IsEmpty indica si la tabla no tiene filas.
func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }
