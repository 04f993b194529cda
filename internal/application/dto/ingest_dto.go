package dto

import "github.com/jhoicas/ecount-sync/internal/application/ingest"

// ErrorResponse respuesta de error estándar del API de operación.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunResponse envuelve el reporte de una ejecución de ingesta.
type RunResponse struct {
	Run *ingest.RunReport `json:"run"`
}
