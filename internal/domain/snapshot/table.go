package snapshot

import (
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
)

// Columnas canónicas del modelo tabular, en el orden en que se cargan.
const (
	ColWarehouseCode = "warehouse_code"
	ColWarehouseName = "warehouse_name"
	ColItemCode      = "item_code"
	ColItemName      = "item_name"
	ColSpec          = "spec"
	ColBalance       = "balance"
	ColDate          = "date"
	ColPeriod        = "period"
	ColStockIn       = "stock_in"
	ColStockOut      = "stock_out"
)

// Columns es el orden canónico de columnas de TableOf.
var Columns = []string{
	ColWarehouseCode, ColWarehouseName,
	ColItemCode, ColItemName, ColSpec,
	ColBalance, ColDate, ColPeriod,
	ColStockIn, ColStockOut,
}

// TableOf arma la tabla canónica a partir de filas normalizadas,
// preservando el orden de las filas y el orden canónico de columnas.
func TableOf(rows []Row) schema.Table {
	out := schema.Table{Columns: Columns, Rows: make([]map[string]any, 0, len(rows))}
	for _, r := range rows {
		out.Rows = append(out.Rows, map[string]any{
			ColWarehouseCode: r.WarehouseCode,
			ColWarehouseName: r.WarehouseName,
			ColItemCode:      r.ItemCode,
			ColItemName:      r.ItemName,
			ColSpec:          r.Spec,
			ColBalance:       r.Balance,
			ColDate:          r.Date,
			ColPeriod:        r.Period,
			ColStockIn:       r.StockIn,
			ColStockOut:      r.StockOut,
		})
	}
	return out
}
