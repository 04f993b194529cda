package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env
// y opcionalmente archivo). Se construye una sola vez al arrancar y se pasa
// por referencia a los colaboradores; no hay estado global.
type Config struct {
	App        AppConfig
	Ecount     EcountConfig
	Run        RunConfig
	Sink       SinkConfig
	BigQuery   BigQueryConfig
	DB         DBConfig
	Sheets     SheetsConfig
	Excel      ExcelConfig
	HTTP       HTTPConfig
	Warehouses map[string]string // código de ubicación Ecount -> nombre legible
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	LogFile  string // opcional: log adicional a archivo
}

// EcountConfig credenciales del OAPI de Ecount.
type EcountConfig struct {
	CompanyCode string `validate:"required"`
	UserID      string `validate:"required"`
	APICertKey  string `validate:"required"`
	Lang        string
	BaseURL     string // override de endpoint; vacío = endpoints reales
	Timeout     time.Duration
}

// RunConfig parámetros de la ejecución de ingesta.
type RunConfig struct {
	WriteMode          string `validate:"oneof=APPEND REPLACE"`
	GroupByWarehouse   bool   // clave de agrupación (ítem, bodega) en vez de solo ítem
	FirstRowPolicy     string `validate:"oneof=opening_as_stock_in zero"`
	PreserveInputOrder bool
	Pause              time.Duration // espera entre bodegas
	Schedule           string        // cron spec para el modo servicio; vacío = sin cron
	ExportSheet        bool          // exportar además a la hoja de cálculo
	ExcelDir           string        // directorio para snapshots .xml de Excel; vacío = sin snapshot
}

// SinkConfig selección del destino de carga.
type SinkConfig struct {
	Kind string `validate:"oneof=bigquery postgres"` // bigquery | postgres
}

// BigQueryConfig destino BigQuery.
type BigQueryConfig struct {
	ProjectID       string
	Dataset         string
	Table           string
	Location        string // ubicación del dataset al crearlo
	CredentialsFile string // vacío = Application Default Credentials
}

// DBConfig destino PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	Table       string // tabla destino de la carga
}

// ConnectionString devuelve el DSN a usar: DatabaseURL si está definido,
// si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para
// caracteres especiales en la contraseña.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// SheetsConfig exportación a Google Sheets.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
}

// ExcelConfig snapshot local en formato Excel (SpreadsheetML).
type ExcelConfig struct {
	SheetName string // nombre de la hoja dentro del libro
}

// HTTPConfig servidor de operación (trigger, estado, métricas) del modo servicio.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SortedWarehouseCodes devuelve los códigos de bodega en orden estable,
// para que las ejecuciones recorran las bodegas siempre en el mismo orden.
func (c *Config) SortedWarehouseCodes() []string {
	codes := make([]string, 0, len(c.Warehouses))
	for code := range c.Warehouses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde
// archivo .env / config.json con el mapa de bodegas). Las env vars tienen
// prioridad. Valida los campos obligatorios antes de devolver.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	// También intenta config.json (mapa de bodegas y overrides)
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "ecount-sync"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			LogFile:  getString(v, "LOG_FILE", ""),
		},
		Ecount: EcountConfig{
			CompanyCode: getString(v, "ECOUNT_COMPANY_CODE", ""),
			UserID:      getString(v, "ECOUNT_USER_ID", ""),
			APICertKey:  getString(v, "ECOUNT_API_CERT_KEY", ""),
			Lang:        getString(v, "ECOUNT_LAN_TYPE", "en-US"),
			BaseURL:     getString(v, "ECOUNT_BASE_URL", ""),
			Timeout:     getDuration(v, "ECOUNT_TIMEOUT", 30*time.Second),
		},
		Run: RunConfig{
			WriteMode:          getString(v, "RUN_WRITE_MODE", "APPEND"),
			GroupByWarehouse:   getBool(v, "RUN_GROUP_BY_WAREHOUSE", false),
			FirstRowPolicy:     getString(v, "RUN_FIRST_ROW_POLICY", "opening_as_stock_in"),
			PreserveInputOrder: getBool(v, "RUN_PRESERVE_INPUT_ORDER", false),
			Pause:              getDuration(v, "RUN_PAUSE", 2*time.Second),
			Schedule:           getString(v, "RUN_SCHEDULE", ""),
			ExportSheet:        getBool(v, "RUN_EXPORT_SHEET", false),
			ExcelDir:           getString(v, "RUN_EXCEL_DIR", ""),
		},
		Sink: SinkConfig{
			Kind: getString(v, "SINK_KIND", "bigquery"),
		},
		BigQuery: BigQueryConfig{
			ProjectID:       getString(v, "BQ_PROJECT_ID", ""),
			Dataset:         getString(v, "BQ_DATASET", "ecount"),
			Table:           getString(v, "BQ_TABLE", "inventory_balance"),
			Location:        getString(v, "BQ_LOCATION", "US"),
			CredentialsFile: getString(v, "BQ_CREDENTIALS_FILE", ""),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "ecount"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			Table:       getString(v, "DB_TABLE", "inventory_balance"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   getString(v, "SHEETS_SPREADSHEET_ID", ""),
			CredentialsFile: getString(v, "SHEETS_CREDENTIALS_FILE", ""),
		},
		Excel: ExcelConfig{
			SheetName: getString(v, "EXCEL_SHEET_NAME", "Inventory"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Warehouses: v.GetStringMapString("warehouses"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate revisa los campos con reglas declaradas y las dependencias entre
// secciones (cada sink exige su propia configuración mínima).
func validate(cfg *Config) error {
	val := validator.New()
	if err := val.Struct(cfg.Ecount); err != nil {
		return fmt.Errorf("configuración Ecount incompleta: %w", err)
	}
	if err := val.Struct(cfg.Run); err != nil {
		return fmt.Errorf("configuración de ejecución inválida: %w", err)
	}
	if err := val.Struct(cfg.Sink); err != nil {
		return fmt.Errorf("sink inválido: %w", err)
	}
	if cfg.Sink.Kind == "bigquery" && cfg.BigQuery.ProjectID == "" {
		return fmt.Errorf("sink bigquery requiere BQ_PROJECT_ID")
	}
	if cfg.Run.ExportSheet && cfg.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("exportación a Sheets requiere SHEETS_SPREADSHEET_ID")
	}
	if len(cfg.Warehouses) == 0 {
		return fmt.Errorf("no hay bodegas configuradas (clave warehouses en config.json)")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if v.IsSet(key) {
		if d := v.GetDuration(key); d > 0 {
			return d
		}
	}
	return def
}
