package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain"
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
	"github.com/jhoicas/ecount-sync/internal/domain/snapshot"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

// ── Dobles de prueba ──────────────────────────────────────────────────────────

type expiredErr struct{}

func (expiredErr) Error() string        { return "sesión vencida" }
func (expiredErr) SessionExpired() bool { return true }

// fakeFetcher devuelve respuestas encoladas por bodega, en orden de llamada.
type fakeFetcher struct {
	responses map[string][]fetchResult
	calls     []string
}

type fetchResult struct {
	records []snapshot.RawRecord
	err     error
}

func (f *fakeFetcher) ListInventoryBalance(_ context.Context, _, warehouseCode string) ([]snapshot.RawRecord, error) {
	f.calls = append(f.calls, warehouseCode)
	queue := f.responses[warehouseCode]
	if len(queue) == 0 {
		return nil, nil
	}
	next := queue[0]
	f.responses[warehouseCode] = queue[1:]
	return next.records, next.err
}

type fakeRenewer struct {
	calls int
	err   error
}

func (r *fakeRenewer) Renew(context.Context) error {
	r.calls++
	return r.err
}

type fakeLoader struct {
	calls  int
	table  schema.Table
	fields []schema.Field
	mode   ingest.WriteMode
	err    error
}

func (l *fakeLoader) Load(_ context.Context, t schema.Table, fields []schema.Field, mode ingest.WriteMode) (int, error) {
	l.calls++
	l.table, l.fields, l.mode = t, fields, mode
	if l.err != nil {
		return 0, l.err
	}
	return t.NumRows(), nil
}

type fakeExporter struct {
	calls int
	title string
	err   error
}

func (e *fakeExporter) Export(_ context.Context, title string, _ schema.Table) error {
	e.calls++
	e.title = title
	return e.err
}

func rawRecord(item, balance string) snapshot.RawRecord {
	return snapshot.RawRecord{
		ProductCode: item,
		ProductDes:  "Ítem " + item,
		BalanceQty:  json.Number(balance),
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Env: "production", Level: "error"})
	require.NoError(t, err)
	return log
}

func newUseCase(t *testing.T, fetcher *fakeFetcher, renewer *fakeRenewer, loader *fakeLoader, exporter ingest.SheetExporter, warehouses ...ingest.Warehouse) *ingest.RunUseCase {
	t.Helper()
	return ingest.NewRunUseCase(fetcher, renewer, loader, exporter, ingest.Params{
		Warehouses: warehouses,
		WriteMode:  ingest.WriteAppend,
	}, testLogger(t), nil)
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestRun_CargaYReporta(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"W1": {{records: []snapshot.RawRecord{rawRecord("A-001", "100"), rawRecord("B-002", "50")}}},
	}}
	loader := &fakeLoader{}
	uc := newUseCase(t, fetcher, &fakeRenewer{}, loader, nil, ingest.Warehouse{Code: "W1", Name: "Central"})

	report, err := uc.Run(context.Background(), "20240215")
	require.NoError(t, err)

	assert.True(t, report.Loaded)
	assert.Equal(t, 2, report.RowsLoaded)
	assert.Empty(t, report.EmptyWarehouses)
	assert.Empty(t, report.FailedWarehouses)
	assert.NotEmpty(t, report.RunID)

	require.Equal(t, 1, loader.calls)
	assert.Equal(t, ingest.WriteAppend, loader.mode)
	assert.Equal(t, snapshot.Columns, loader.table.Columns)
	require.Len(t, loader.fields, len(snapshot.Columns))
	assert.Equal(t, snapshot.ColWarehouseCode, loader.fields[0].Name)
}

// TestRun_SesionVencidaReintentaUnaVez: la primera consulta devuelve sesión
// vencida; el orquestador reautentica y reintenta exactamente una vez.
func TestRun_SesionVencidaReintentaUnaVez(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"W1": {
			{err: expiredErr{}},
			{records: []snapshot.RawRecord{rawRecord("A-001", "100")}},
		},
	}}
	renewer := &fakeRenewer{}
	loader := &fakeLoader{}
	uc := newUseCase(t, fetcher, renewer, loader, nil, ingest.Warehouse{Code: "W1", Name: "Central"})

	report, err := uc.Run(context.Background(), "20240215")
	require.NoError(t, err)

	assert.Equal(t, 1, renewer.calls, "una sola reautenticación")
	assert.Equal(t, []string{"W1", "W1"}, fetcher.calls, "un solo reintento")
	assert.True(t, report.Loaded)
	assert.Empty(t, report.FailedWarehouses)
}

// TestRun_SesionVencidaDosVeces: una segunda expiración ya no se reintenta;
// la bodega queda como fallida y la ejecución continúa.
func TestRun_SesionVencidaDosVeces(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"W1": {{err: expiredErr{}}, {err: expiredErr{}}},
		"W2": {{records: []snapshot.RawRecord{rawRecord("A-001", "100")}}},
	}}
	renewer := &fakeRenewer{}
	loader := &fakeLoader{}
	uc := newUseCase(t, fetcher, renewer, loader, nil,
		ingest.Warehouse{Code: "W1", Name: "Central"},
		ingest.Warehouse{Code: "W2", Name: "Norte"},
	)

	report, err := uc.Run(context.Background(), "20240215")
	require.NoError(t, err)

	assert.Equal(t, 1, renewer.calls)
	assert.Equal(t, []string{"W1", "W1", "W2"}, fetcher.calls)
	assert.Equal(t, []string{"W1"}, report.FailedWarehouses)
	assert.True(t, report.Loaded, "las demás bodegas se cargan igual")
	assert.Equal(t, 1, report.RowsLoaded)
}

// TestRun_TodasVacias: sin datos en ninguna bodega no se invoca al destino y
// todas se reportan vacías.
func TestRun_TodasVacias(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{}}
	loader := &fakeLoader{}
	uc := newUseCase(t, fetcher, &fakeRenewer{}, loader, nil,
		ingest.Warehouse{Code: "W1", Name: "Central"},
		ingest.Warehouse{Code: "W2", Name: "Norte"},
	)

	report, err := uc.Run(context.Background(), "20240215")
	require.NoError(t, err, "una ejecución sin datos no es un error")

	assert.False(t, report.Loaded)
	assert.Zero(t, loader.calls, "no se invoca al destino")
	assert.Equal(t, []string{"W1", "W2"}, report.EmptyWarehouses)
}

// TestRun_VaciasParciales: se carga lo que hay y se reporta aparte el
// conjunto vacío.
func TestRun_VaciasParciales(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"W2": {{records: []snapshot.RawRecord{rawRecord("A-001", "100")}}},
	}}
	loader := &fakeLoader{}
	uc := newUseCase(t, fetcher, &fakeRenewer{}, loader, nil,
		ingest.Warehouse{Code: "W1", Name: "Central"},
		ingest.Warehouse{Code: "W2", Name: "Norte"},
	)

	report, err := uc.Run(context.Background(), "20240215")
	require.NoError(t, err)

	assert.True(t, report.Loaded)
	assert.Equal(t, 1, report.RowsLoaded)
	assert.Equal(t, []string{"W1"}, report.EmptyWarehouses)
}

// TestRun_RegistrosMalFormados: una bodega con datos corruptos se omite como
// fallida sin abortar la ejecución.
func TestRun_RegistrosMalFormados(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"W1": {{records: []snapshot.RawRecord{rawRecord("A-001", "no-numérico")}}},
		"W2": {{records: []snapshot.RawRecord{rawRecord("B-002", "10")}}},
	}}
	loader := &fakeLoader{}
	uc := newUseCase(t, fetcher, &fakeRenewer{}, loader, nil,
		ingest.Warehouse{Code: "W1", Name: "Central"},
		ingest.Warehouse{Code: "W2", Name: "Norte"},
	)

	report, err := uc.Run(context.Background(), "20240215")
	require.NoError(t, err)

	assert.Equal(t, []string{"W1"}, report.FailedWarehouses)
	assert.True(t, report.Loaded)
}

func TestRun_DestinoRechaza(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"W1": {{records: []snapshot.RawRecord{rawRecord("A-001", "100")}}},
	}}
	loader := &fakeLoader{err: errors.New("cuota excedida")}
	uc := newUseCase(t, fetcher, &fakeRenewer{}, loader, nil, ingest.Warehouse{Code: "W1", Name: "Central"})

	report, err := uc.Run(context.Background(), "20240215")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoad, "el rechazo del destino se envuelve en ErrLoad, sin reintento")
	assert.False(t, report.Loaded)
}

// TestRun_ExportacionFallidaNoTumba: la hoja es un destino secundario.
func TestRun_ExportacionFallidaNoTumba(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"W1": {{records: []snapshot.RawRecord{rawRecord("A-001", "100")}}},
	}}
	exporter := &fakeExporter{err: errors.New("cuota de Sheets")}
	uc := newUseCase(t, fetcher, &fakeRenewer{}, &fakeLoader{}, exporter, ingest.Warehouse{Code: "W1", Name: "Central"})

	report, err := uc.Run(context.Background(), "20240215")
	require.NoError(t, err)

	assert.True(t, report.Loaded)
	assert.Equal(t, 1, exporter.calls)
	assert.Equal(t, "inventory_balance-20240215", exporter.title)
}

func TestIsSessionExpired(t *testing.T) {
	assert.True(t, ingest.IsSessionExpired(expiredErr{}))
	assert.False(t, ingest.IsSessionExpired(errors.New("otro error")))
	assert.False(t, ingest.IsSessionExpired(nil))
}
