package schema

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ecount-sync/internal/domain"
)

// Infer deriva el esquema de columnas de una tabla para que el destino
// pueda crear o validar la tabla física antes de cargar.
//
// El tipo de cada columna se muestrea del primer valor no nulo observado;
// una columna enteramente vacía falla con domain.ErrSchemaInference (el
// llamador debe garantizar al menos una fila poblada). Columnas con valores
// []any se marcan Repeated; objetos anidados (map[string]any) producen un
// RECORD con subcampos inferidos recursivamente.
func Infer(t Table) ([]Field, error) {
	fields := make([]Field, 0, len(t.Columns))
	for _, col := range t.Columns {
		v := firstNonNull(t.Rows, col)
		if v == nil {
			return nil, fmt.Errorf("%w: columna %q sin valores para muestrear", domain.ErrSchemaInference, col)
		}
		f, err := inferField(col, v)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func firstNonNull(rows []map[string]any, col string) any {
	for _, row := range rows {
		if v, ok := row[col]; ok && v != nil {
			return v
		}
	}
	return nil
}

func inferField(name string, v any) (Field, error) {
	if seq, ok := v.([]any); ok {
		if len(seq) == 0 {
			return Field{}, fmt.Errorf("%w: columna %q con secuencia vacía", domain.ErrSchemaInference, name)
		}
		f, err := inferField(name, seq[0])
		if err != nil {
			return Field{}, err
		}
		f.Repeated = true
		return f, nil
	}

	switch val := v.(type) {
	case decimal.Decimal:
		return Field{Name: name, Type: TypeNumeric}, nil
	case int, int32, int64:
		return Field{Name: name, Type: TypeInteger}, nil
	case bool:
		return Field{Name: name, Type: TypeBoolean}, nil
	case float32, float64:
		return Field{Name: name, Type: TypeFloat}, nil
	case string:
		return Field{Name: name, Type: TypeString}, nil
	case time.Time:
		return Field{Name: name, Type: TypeTimestamp}, nil
	case map[string]any:
		sub, err := inferRecord(name, val)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: TypeRecord, Fields: sub}, nil
	default:
		return Field{}, fmt.Errorf("%w: columna %q con tipo no soportado %T", domain.ErrSchemaInference, name, v)
	}
}

// inferRecord infiere los subcampos de un objeto anidado. Las claves se
// recorren en orden lexicográfico para que el esquema sea determinista.
func inferRecord(name string, obj map[string]any) ([]Field, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sub := make([]Field, 0, len(keys))
	for _, k := range keys {
		v := obj[k]
		if v == nil {
			return nil, fmt.Errorf("%w: subcampo %q.%q sin valor para muestrear", domain.ErrSchemaInference, name, k)
		}
		f, err := inferField(k, v)
		if err != nil {
			return nil, err
		}
		sub = append(sub, f)
	}
	return sub, nil
}
