package snapshot

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord es un registro crudo tal como lo devuelve el OAPI de Ecount
// (InventoryBalance por ubicación). Los nombres de campo son los del API;
// el acceso es siempre tipado, nunca por clave string.
type RawRecord struct {
	WarehouseCode string      `json:"WH_CD"`
	WarehouseDes  string      `json:"WH_DES"`
	ProductCode   string      `json:"PROD_CD" validate:"required"`
	ProductDes    string      `json:"PROD_DES" validate:"required"`
	ProductSize   string      `json:"PROD_SIZE_DES"`
	BalanceQty    json.Number `json:"BAL_QTY" validate:"required"`
}

// Row es una observación canónica de saldo: un ítem, en una bodega, en una fecha.
// Es el modelo tabular que consume el motor de movimientos y los destinos de carga.
type Row struct {
	WarehouseCode string
	WarehouseName string
	ItemCode      string
	ItemName      string
	Spec          string
	Balance       decimal.Decimal
	Date          time.Time // solo fecha, sin componente de hora
	Period        time.Time // primer día del mes de Date (agrupación para reportes)
	StockIn       decimal.Decimal
	StockOut      decimal.Decimal
}

// Key identifica la observación dentro de una ejecución: (ítem, bodega, fecha).
// Duplicados con la misma clave son comportamiento indefinido aguas arriba.
type Key struct {
	ItemCode      string
	WarehouseCode string
	Date          time.Time
}

// Key devuelve la clave de identidad de la fila.
func (r Row) Key() Key {
	return Key{ItemCode: r.ItemCode, WarehouseCode: r.WarehouseCode, Date: r.Date}
}
