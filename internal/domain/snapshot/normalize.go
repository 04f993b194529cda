package snapshot

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ecount-sync/internal/domain"
)

// baseDateLayout es el formato de fecha de consulta del OAPI (YYYYMMDD).
const baseDateLayout = "20060102"

var validate = validator.New()

// ParseBaseDate parsea la fecha de consulta YYYYMMDD a una fecha sin hora (UTC).
func ParseBaseDate(baseDate string) (time.Time, error) {
	t, err := time.Parse(baseDateLayout, baseDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha %q no cumple YYYYMMDD", domain.ErrDataFormat, baseDate)
	}
	return t.UTC(), nil
}

// PeriodOf deriva el periodo de reporte: el primer día del mes de la fecha dada.
func PeriodOf(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Normalize convierte la respuesta cruda del API en filas canónicas:
// renombra campos, parsea la fecha de consulta, deriva el periodo y
// coerciona el saldo a decimal. La identidad de la bodega (código y nombre)
// la aporta el llamador; el código de ubicación interno del API se descarta
// porque es redundante una vez adjuntada esa identidad.
//
// Transformación pura: no hace I/O y no muta los registros de entrada.
// Falla con domain.ErrDataFormat si faltan campos requeridos, si la fecha
// no es YYYYMMDD o si el saldo no es numérico (nunca se silencia a cero).
func Normalize(records []RawRecord, baseDate, warehouseCode, warehouseName string) ([]Row, error) {
	date, err := ParseBaseDate(baseDate)
	if err != nil {
		return nil, err
	}
	period := PeriodOf(date)

	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("%w: registro %d con campos requeridos ausentes: %v", domain.ErrDataFormat, i, err)
		}
		balance, err := decimal.NewFromString(rec.BalanceQty.String())
		if err != nil {
			return nil, fmt.Errorf("%w: registro %d (ítem %s): saldo %q no numérico", domain.ErrDataFormat, i, rec.ProductCode, rec.BalanceQty)
		}
		rows = append(rows, Row{
			WarehouseCode: warehouseCode,
			WarehouseName: warehouseName,
			ItemCode:      rec.ProductCode,
			ItemName:      rec.ProductDes,
			Spec:          rec.ProductSize,
			Balance:       balance,
			Date:          date,
			Period:        period,
			StockIn:       decimal.Zero,
			StockOut:      decimal.Zero,
		})
	}
	return rows, nil
}
