package ecount

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain/snapshot"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

// ── Constantes del OAPI ───────────────────────────────────────────────────────

const (
	// zoneLookupURL es el endpoint global de descubrimiento de zona.
	zoneLookupURL = "https://sboapi.ecount.com"

	pathZone        = "/OAPI/V2/Zone"
	pathLogin       = "/OAPI/V2/OAPILogin"
	pathBalanceList = "/OAPI/V2/InventoryBalance/GetListInventoryBalanceStatusByLocation"
	pathBalanceView = "/OAPI/V2/InventoryBalance/ViewInventoryBalanceStatusByLocation"

	// SessionExpiredCode es el código con el que el OAPI señala sesión vencida.
	// Es el único error del API recuperable: el orquestador reautentica y
	// reintenta la consulta exactamente una vez.
	SessionExpiredCode = "SESSION_EXPIRED"
)

// ── Errores ───────────────────────────────────────────────────────────────────

// APIError es un fallo del OAPI de Ecount (red, auth o rechazo del servicio).
type APIError struct {
	Op      string // operación que falló (zone, login, balance)
	Code    string // código devuelto por el API; vacío en fallos de transporte
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ecount %s: [%s] %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("ecount %s: %s", e.Op, e.Message)
}

// SessionExpired indica si el error corresponde a una sesión vencida.
func (e *APIError) SessionExpired() bool { return e.Code == SessionExpiredCode }

// ── Cliente ───────────────────────────────────────────────────────────────────

// Config credenciales y opciones del cliente Ecount.
type Config struct {
	CompanyCode string
	UserID      string
	APICertKey  string
	Lang        string // LAN_TYPE, ej. "en-US"
	BaseURL     string // override de endpoint (tests / proxies); vacío = endpoints reales
	Timeout     time.Duration
}

// Client consume el OAPI de Ecount con autenticación por sesión:
// Zone -> OAPILogin -> consultas con SESSION_ID en la query string.
// Implementa los puertos Fetcher y SessionRenewer del orquestador.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger

	mu        sync.Mutex
	zone      string
	sessionID string
}

var (
	_ ingest.Fetcher        = (*Client)(nil)
	_ ingest.SessionRenewer = (*Client)(nil)
)

// NewClient construye el cliente. El timeout por defecto es 30 s.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// envelope es el sobre común de las respuestas del OAPI.
type envelope struct {
	Data  json.RawMessage `json:"Data"`
	Error *apiFault       `json:"Error"`
}

type apiFault struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// Zone resuelve la zona del tenant a partir del código de compañía.
func (c *Client) Zone(ctx context.Context) (string, error) {
	payload := map[string]string{"COM_CODE": c.cfg.CompanyCode}
	var data struct {
		Zone string `json:"ZONE"`
	}
	if err := c.post(ctx, "zone", c.lookupURL()+pathZone, payload, &data); err != nil {
		return "", err
	}
	if data.Zone == "" {
		return "", &APIError{Op: "zone", Message: "respuesta sin ZONE"}
	}
	return data.Zone, nil
}

// Login abre una sesión: resuelve la zona y autentica con la API cert key.
// La sesión queda guardada en el cliente para las consultas siguientes.
func (c *Client) Login(ctx context.Context) error {
	zone, err := c.Zone(ctx)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"COM_CODE":     c.cfg.CompanyCode,
		"USER_ID":      c.cfg.UserID,
		"API_CERT_KEY": c.cfg.APICertKey,
		"LAN_TYPE":     c.cfg.Lang,
		"ZONE":         zone,
	}
	var data struct {
		Datas struct {
			SessionID string `json:"SESSION_ID"`
		} `json:"Datas"`
	}
	if err := c.post(ctx, "login", c.zoneURL(zone)+pathLogin, payload, &data); err != nil {
		return err
	}
	if data.Datas.SessionID == "" {
		return &APIError{Op: "login", Message: "respuesta sin SESSION_ID"}
	}

	c.mu.Lock()
	c.zone = zone
	c.sessionID = data.Datas.SessionID
	c.mu.Unlock()
	c.log.Info().Str("zone", zone).Msg("sesión Ecount abierta")
	return nil
}

// Renew reautentica tras una sesión vencida (puerto SessionRenewer).
func (c *Client) Renew(ctx context.Context) error {
	return c.Login(ctx)
}

// ListInventoryBalance devuelve los saldos de todos los ítems de una bodega
// para la fecha de consulta (YYYYMMDD).
func (c *Client) ListInventoryBalance(ctx context.Context, baseDate, warehouseCode string) ([]snapshot.RawRecord, error) {
	payload := map[string]string{
		"BASE_DATE": baseDate,
		"WH_CD":     warehouseCode,
	}
	return c.balanceQuery(ctx, pathBalanceList, payload)
}

// ViewInventoryBalance devuelve el saldo de un solo producto (todas las
// ubicaciones) para la fecha de consulta.
func (c *Client) ViewInventoryBalance(ctx context.Context, baseDate, productCode string) ([]snapshot.RawRecord, error) {
	if productCode == "" {
		return nil, &APIError{Op: "balance", Message: "PROD_CD es requerido para la consulta individual"}
	}
	payload := map[string]string{
		"BASE_DATE": baseDate,
		"PROD_CD":   productCode,
	}
	return c.balanceQuery(ctx, pathBalanceView, payload)
}

func (c *Client) balanceQuery(ctx context.Context, path string, payload map[string]string) ([]snapshot.RawRecord, error) {
	c.mu.Lock()
	zone, session := c.zone, c.sessionID
	c.mu.Unlock()
	if session == "" {
		return nil, &APIError{Op: "balance", Message: "sin sesión: llamar Login primero"}
	}

	endpoint := c.zoneURL(zone) + path + "?SESSION_ID=" + url.QueryEscape(session)
	var data struct {
		Result []snapshot.RawRecord `json:"Result"`
	}
	if err := c.post(ctx, "balance", endpoint, payload, &data); err != nil {
		return nil, err
	}
	return data.Result, nil
}

// post envía un POST JSON y decodifica Data en out, traduciendo fallos del
// sobre (Error) y de transporte a *APIError.
func (c *Client) post(ctx context.Context, op, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &APIError{Op: op, Message: fmt.Sprintf("serializar payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &APIError{Op: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Op: op, Message: fmt.Sprintf("leer respuesta: %v", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Op: op, Message: fmt.Sprintf("respuesta no es JSON: %v", err)}
	}
	if env.Error != nil {
		return &APIError{Op: op, Code: env.Error.Code, Message: env.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Op: op, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Op: op, Message: fmt.Sprintf("decodificar Data: %v", err)}
		}
	}
	return nil
}

func (c *Client) lookupURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return zoneLookupURL
}

func (c *Client) zoneURL(zone string) string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return fmt.Sprintf("https://sboapi%s.ecount.com", zone)
}
