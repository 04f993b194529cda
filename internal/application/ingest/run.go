package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/ecount-sync/internal/domain"
	"github.com/jhoicas/ecount-sync/internal/domain/movement"
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
	"github.com/jhoicas/ecount-sync/internal/domain/snapshot"
	"github.com/jhoicas/ecount-sync/pkg/logger"
	"github.com/jhoicas/ecount-sync/pkg/metrics"
)

// Warehouse es una bodega configurada: código de ubicación en el ERP y nombre legible.
type Warehouse struct {
	Code string
	Name string
}

// Params configura una ejecución de ingesta.
type Params struct {
	Warehouses []Warehouse      // bodegas a consultar, en orden
	Engine     movement.Options // agrupación, política de primera fila y orden de salida
	WriteMode  WriteMode        // APPEND o REPLACE contra el destino
	Pause      time.Duration    // espera entre bodegas (cortesía con el API remoto)
	ExportName string           // prefijo de la sub-hoja exportada; vacío = "inventory_balance"
}

// RunReport es el resultado de una ejecución: qué se cargó y qué bodegas
// quedaron vacías o fallidas. Una ejecución sin datos termina sin invocar
// al destino y reporta todas las bodegas como vacías.
type RunReport struct {
	RunID            string        `json:"run_id"`
	Date             string        `json:"date"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	Loaded           bool          `json:"loaded"`
	RowsLoaded       int           `json:"rows_loaded"`
	EmptyWarehouses  []string      `json:"empty_warehouses"`
	FailedWarehouses []string      `json:"failed_warehouses"`
}

// RunUseCase orquesta una ejecución completa: por cada bodega consulta el ERP
// (reintentando una sola vez si la sesión venció), normaliza, calcula
// movimientos sobre el lote combinado, infiere el esquema y carga al destino;
// opcionalmente exporta la tabla a la hoja de cálculo.
//
// Cada ejecución es dueña de sus filas: no comparte estado mutable, así que
// varias ejecuciones independientes pueden correr en paralelo sin locks.
type RunUseCase struct {
	fetcher  Fetcher
	renewer  SessionRenewer
	loader   LoadClient
	exporter SheetExporter // opcional; nil desactiva la exportación
	params   Params
	log      *logger.Logger
	met      *metrics.Registry // opcional
}

// NewRunUseCase construye el caso de uso. exporter y met pueden ser nil.
func NewRunUseCase(
	fetcher Fetcher,
	renewer SessionRenewer,
	loader LoadClient,
	exporter SheetExporter,
	params Params,
	log *logger.Logger,
	met *metrics.Registry,
) *RunUseCase {
	if params.ExportName == "" {
		params.ExportName = "inventory_balance"
	}
	return &RunUseCase{
		fetcher:  fetcher,
		renewer:  renewer,
		loader:   loader,
		exporter: exporter,
		params:   params,
		log:      log,
		met:      met,
	}
}

// Run ejecuta la ingesta para la fecha de consulta (YYYYMMDD).
//
// Errores del API distintos de sesión vencida no abortan la ejecución: la
// bodega afectada se reporta como fallida y se continúa con las demás. Lo
// mismo aplica a registros mal formados (domain.ErrDataFormat) de una bodega.
// Un rechazo del destino sí aborta y se envuelve en domain.ErrLoad, sin
// reintento automático.
func (uc *RunUseCase) Run(ctx context.Context, baseDate string) (*RunReport, error) {
	started := time.Now()
	report := &RunReport{
		RunID:            uuid.NewString(),
		Date:             baseDate,
		StartedAt:        started,
		EmptyWarehouses:  []string{},
		FailedWarehouses: []string{},
	}
	log := uc.log.With().Str("run_id", report.RunID).Str("base_date", baseDate).Logger()

	var all []snapshot.Row
	for i, wh := range uc.params.Warehouses {
		if i > 0 && uc.params.Pause > 0 {
			if err := sleepCtx(ctx, uc.params.Pause); err != nil {
				return report, err
			}
		}

		records, err := uc.fetchWithRetry(ctx, baseDate, wh.Code)
		if err != nil {
			log.Error().Err(err).Str("warehouse", wh.Code).Msg("consulta de saldos fallida; se omite la bodega")
			report.FailedWarehouses = append(report.FailedWarehouses, wh.Code)
			continue
		}
		if len(records) == 0 {
			log.Warn().Str("warehouse", wh.Code).Msg("bodega sin saldos para la fecha")
			report.EmptyWarehouses = append(report.EmptyWarehouses, wh.Code)
			continue
		}

		rows, err := snapshot.Normalize(records, baseDate, wh.Code, wh.Name)
		if err != nil {
			log.Error().Err(err).Str("warehouse", wh.Code).Msg("registros mal formados; se omite la bodega")
			report.FailedWarehouses = append(report.FailedWarehouses, wh.Code)
			continue
		}
		all = append(all, rows...)
	}

	if len(all) == 0 {
		report.Duration = time.Since(started)
		log.Warn().Int("warehouses", len(uc.params.Warehouses)).Msg("ejecución sin datos: no se invoca al destino")
		uc.observe(report, "empty")
		return report, nil
	}

	computed, err := movement.Compute(all, uc.params.Engine)
	if err != nil {
		report.Duration = time.Since(started)
		uc.observe(report, "failed")
		return report, err
	}

	table := snapshot.TableOf(computed)
	fields, err := schema.Infer(table)
	if err != nil {
		report.Duration = time.Since(started)
		uc.observe(report, "failed")
		return report, err
	}

	n, err := uc.loader.Load(ctx, table, fields, uc.params.WriteMode)
	if err != nil {
		report.Duration = time.Since(started)
		uc.observe(report, "failed")
		return report, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	report.Loaded = true
	report.RowsLoaded = n

	if uc.exporter != nil {
		title := fmt.Sprintf("%s-%s", uc.params.ExportName, baseDate)
		if err := uc.exporter.Export(ctx, title, table); err != nil {
			// La hoja es un destino secundario: se registra pero no tumba la ejecución.
			log.Error().Err(err).Str("sheet", title).Msg("exportación a hoja de cálculo fallida")
		}
	}

	report.Duration = time.Since(started)
	log.Info().
		Int("rows", report.RowsLoaded).
		Int("empty", len(report.EmptyWarehouses)).
		Int("failed", len(report.FailedWarehouses)).
		Dur("duration", report.Duration).
		Msg("ejecución completada")
	uc.observe(report, "ok")
	return report, nil
}

// fetchWithRetry consulta los saldos de una bodega; si la sesión venció,
// reautentica y reintenta exactamente una vez. Cualquier otro error, o una
// segunda expiración, se devuelve tal cual.
func (uc *RunUseCase) fetchWithRetry(ctx context.Context, baseDate, warehouseCode string) ([]snapshot.RawRecord, error) {
	records, err := uc.fetcher.ListInventoryBalance(ctx, baseDate, warehouseCode)
	if err == nil || !IsSessionExpired(err) {
		return records, err
	}
	uc.log.Warn().Str("warehouse", warehouseCode).Msg("sesión vencida: reautenticando y reintentando una vez")
	if rerr := uc.renewer.Renew(ctx); rerr != nil {
		return nil, fmt.Errorf("reautenticación tras sesión vencida: %w", rerr)
	}
	return uc.fetcher.ListInventoryBalance(ctx, baseDate, warehouseCode)
}

func (uc *RunUseCase) observe(report *RunReport, status string) {
	if uc.met == nil {
		return
	}
	uc.met.RunsTotal.WithLabelValues(status).Inc()
	uc.met.RowsLoadedTotal.Add(float64(report.RowsLoaded))
	uc.met.WarehousesEmptyTotal.Add(float64(len(report.EmptyWarehouses)))
	uc.met.RunDurationSec.Observe(report.Duration.Seconds())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
