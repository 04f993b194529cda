package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	bq "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain/schema"
	"github.com/jhoicas/ecount-sync/pkg/config"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

// Loader implementa el puerto LoadClient contra BigQuery. Antes de cargar
// garantiza que el dataset y la tabla existan (creándolos si faltan) y luego
// ejecuta un load job NDJSON con la write disposition pedida.
type Loader struct {
	client *bq.Client
	cfg    config.BigQueryConfig
	log    *logger.Logger
}

var _ ingest.LoadClient = (*Loader)(nil)

// NewLoader construye el cliente de BigQuery. Con CredentialsFile vacío usa
// Application Default Credentials.
func NewLoader(ctx context.Context, cfg config.BigQueryConfig, log *logger.Logger) (*Loader, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := bq.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("cliente BigQuery: %w", err)
	}
	return &Loader{client: client, cfg: cfg, log: log}, nil
}

// Close libera el cliente.
func (l *Loader) Close() error { return l.client.Close() }

// Load persiste la tabla y devuelve las filas cargadas.
func (l *Loader) Load(ctx context.Context, t schema.Table, fields []schema.Field, mode ingest.WriteMode) (int, error) {
	if err := l.ensureDataset(ctx); err != nil {
		return 0, err
	}
	bqSchema := toBigQuerySchema(fields)
	if err := l.ensureTable(ctx, bqSchema); err != nil {
		return 0, err
	}

	payload, err := ndjson(t, fields)
	if err != nil {
		return 0, err
	}
	source := bq.NewReaderSource(bytes.NewReader(payload))
	source.SourceFormat = bq.JSON
	source.Schema = bqSchema

	loader := l.client.Dataset(l.cfg.Dataset).Table(l.cfg.Table).LoaderFrom(source)
	switch mode {
	case ingest.WriteReplace:
		loader.WriteDisposition = bq.WriteTruncate
	default:
		loader.WriteDisposition = bq.WriteAppend
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("iniciar load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("esperar load job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("load job rechazado: %w", err)
	}

	l.log.Info().
		Str("table", fmt.Sprintf("%s.%s.%s", l.cfg.ProjectID, l.cfg.Dataset, l.cfg.Table)).
		Int("rows", t.NumRows()).
		Str("mode", string(mode)).
		Msg("carga a BigQuery completada")
	return t.NumRows(), nil
}

// ensureDataset crea el dataset si no existe.
func (l *Loader) ensureDataset(ctx context.Context) error {
	ds := l.client.Dataset(l.cfg.Dataset)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("consultar dataset %s: %w", l.cfg.Dataset, err)
	}
	if err := ds.Create(ctx, &bq.DatasetMetadata{Location: l.cfg.Location}); err != nil {
		return fmt.Errorf("crear dataset %s: %w", l.cfg.Dataset, err)
	}
	l.log.Info().Str("dataset", l.cfg.Dataset).Msg("dataset creado")
	return nil
}

// ensureTable crea la tabla con el esquema inferido si no existe. Si ya
// existe se deja como está: el load job valida la compatibilidad del esquema.
func (l *Loader) ensureTable(ctx context.Context, s bq.Schema) error {
	tb := l.client.Dataset(l.cfg.Dataset).Table(l.cfg.Table)
	_, err := tb.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("consultar tabla %s: %w", l.cfg.Table, err)
	}
	if err := tb.Create(ctx, &bq.TableMetadata{Schema: s}); err != nil {
		return fmt.Errorf("crear tabla %s: %w", l.cfg.Table, err)
	}
	l.log.Info().Str("table", l.cfg.Table).Msg("tabla creada")
	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// toBigQuerySchema traduce el esquema inferido al esquema de BigQuery,
// incluidos RECORD anidados y campos REPEATED.
func toBigQuerySchema(fields []schema.Field) bq.Schema {
	out := make(bq.Schema, 0, len(fields))
	for _, f := range fields {
		fs := &bq.FieldSchema{
			Name:     f.Name,
			Type:     toBigQueryType(f.Type),
			Repeated: f.Repeated,
		}
		if f.Type == schema.TypeRecord {
			fs.Schema = toBigQuerySchema(f.Fields)
		}
		out = append(out, fs)
	}
	return out
}

func toBigQueryType(t schema.FieldType) bq.FieldType {
	switch t {
	case schema.TypeInteger:
		return bq.IntegerFieldType
	case schema.TypeNumeric:
		return bq.NumericFieldType
	case schema.TypeBoolean:
		return bq.BooleanFieldType
	case schema.TypeFloat:
		return bq.FloatFieldType
	case schema.TypeTimestamp:
		return bq.TimestampFieldType
	case schema.TypeRecord:
		return bq.RecordFieldType
	default:
		return bq.StringFieldType
	}
}

// ndjson serializa la tabla a JSON delimitado por saltos de línea, el formato
// del load job. Decimales como string (NUMERIC los acepta así) y timestamps
// en RFC 3339.
func ndjson(t schema.Table, fields []schema.Field) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, row := range t.Rows {
		obj := make(map[string]any, len(fields))
		for _, f := range fields {
			obj[f.Name] = jsonValue(row[f.Name])
		}
		if err := enc.Encode(obj); err != nil {
			return nil, fmt.Errorf("serializar fila %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}
