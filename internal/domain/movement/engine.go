package movement

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ecount-sync/internal/domain/snapshot"
)

// FirstRowPolicy define qué movimiento recibe la primera observación de un
// grupo, que no tiene saldo previo contra el cual comparar.
type FirstRowPolicy int

const (
	// OpeningAsStockIn trata el saldo de apertura como un ingreso inicial:
	// stock_in = saldo, stock_out = 0. Decisión de producto, no regla
	// contable universal; quien necesite otra política la indica explícita.
	OpeningAsStockIn FirstRowPolicy = iota
	// ZeroMovement deja la primera observación sin movimiento (ambos en cero).
	ZeroMovement
)

// Options controla la agrupación y el orden de salida del motor.
// La clave de agrupación y la política de primera fila son parámetros del
// llamador, nunca se infieren de los datos.
type Options struct {
	// GroupByWarehouse agrupa por (ítem, bodega) en lugar de solo por ítem.
	// Usar cuando el lote combina series de varias bodegas.
	GroupByWarehouse bool
	// FirstRow es la política para la primera observación de cada grupo.
	FirstRow FirstRowPolicy
	// PreserveInputOrder devuelve las filas en su orden relativo original.
	// En false (por defecto) la salida se ordena por (ítem, fecha) para
	// que el resultado sea determinista.
	PreserveInputOrder bool
}

type groupKey struct {
	itemCode      string
	warehouseCode string
}

// Compute calcula stock_in/stock_out para un lote de observaciones que puede
// abarcar varios ítems, bodegas y fechas.
//
// Por cada grupo (según Options) ordena las observaciones por fecha ascendente
// (orden estable: empates de fecha quedan en orden de entrada, nunca se
// descartan) y compara cada saldo con el inmediatamente anterior del mismo
// grupo: aumento → stock_in, disminución → stock_out, igual → ambos cero.
// La comparación es decimal exacta, sin epsilon. La entrada no se muta;
// se devuelve una copia.
//
// No falla con entrada bien formada: el saldo ya es decimal por el tipo de
// snapshot.Row, así que el error de saldo inválido se agota en la
// normalización. La firma conserva el error por estabilidad del contrato.
func Compute(rows []snapshot.Row, opts Options) ([]snapshot.Row, error) {
	out := make([]snapshot.Row, len(rows))
	copy(out, rows)

	// Índices por grupo, en orden de entrada.
	groups := make(map[groupKey][]int)
	var order []groupKey
	for i, r := range out {
		k := groupKey{itemCode: r.ItemCode}
		if opts.GroupByWarehouse {
			k.warehouseCode = r.WarehouseCode
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		idx := groups[k]
		// Orden por fecha solo para comparar; la posición de salida de cada
		// fila no depende de este sort.
		sorted := make([]int, len(idx))
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return out[sorted[a]].Date.Before(out[sorted[b]].Date)
		})

		var prev decimal.Decimal
		for pos, i := range sorted {
			if pos == 0 {
				out[i].StockIn, out[i].StockOut = firstRowMovement(out[i].Balance, opts.FirstRow)
			} else {
				out[i].StockIn, out[i].StockOut = deltaMovement(out[i].Balance, prev)
			}
			prev = out[i].Balance
		}
	}

	if !opts.PreserveInputOrder {
		sort.SliceStable(out, func(a, b int) bool {
			if out[a].ItemCode != out[b].ItemCode {
				return out[a].ItemCode < out[b].ItemCode
			}
			return out[a].Date.Before(out[b].Date)
		})
	}
	return out, nil
}

// deltaMovement reparte la diferencia de saldos: a lo sumo uno de los dos
// movimientos es distinto de cero y ambos son siempre >= 0.
func deltaMovement(now, prev decimal.Decimal) (stockIn, stockOut decimal.Decimal) {
	switch now.Cmp(prev) {
	case 1:
		return now.Sub(prev), decimal.Zero
	case -1:
		return decimal.Zero, prev.Sub(now)
	default:
		return decimal.Zero, decimal.Zero
	}
}

func firstRowMovement(balance decimal.Decimal, policy FirstRowPolicy) (stockIn, stockOut decimal.Decimal) {
	if policy == OpeningAsStockIn {
		return balance, decimal.Zero
	}
	return decimal.Zero, decimal.Zero
}
