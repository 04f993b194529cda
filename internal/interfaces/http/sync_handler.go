package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ecount-sync/internal/application/dto"
	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain/snapshot"
)

// SyncHandler expone el disparo manual de ejecuciones y el último reporte.
// Guarda el reporte más reciente para GET /api/runs/latest; una sola
// ejecución manual a la vez (las concurrentes reciben 409).
type SyncHandler struct {
	uc *ingest.RunUseCase

	mu      sync.Mutex
	running bool
	latest  *ingest.RunReport
}

// NewSyncHandler construye el handler.
func NewSyncHandler(uc *ingest.RunUseCase) *SyncHandler {
	return &SyncHandler{uc: uc}
}

// Trigger dispara una ejecución para ?date=YYYYMMDD (por defecto, hoy).
func (h *SyncHandler) Trigger(c *fiber.Ctx) error {
	baseDate := c.Query("date", time.Now().Format("20060102"))
	if _, err := snapshot.ParseBaseDate(baseDate); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_DATE", Message: "date debe ser YYYYMMDD"})
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RUN_IN_PROGRESS", Message: "ya hay una ejecución en curso"})
	}
	h.running = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	report, err := h.uc.Run(c.Context(), baseDate)
	h.Record(report)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "RUN_FAILED", Message: err.Error()})
	}
	return c.JSON(dto.RunResponse{Run: report})
}

// Latest devuelve el reporte de la última ejecución (manual o programada).
func (h *SyncHandler) Latest(c *fiber.Ctx) error {
	h.mu.Lock()
	latest := h.latest
	h.mu.Unlock()
	if latest == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NO_RUNS", Message: "aún no hay ejecuciones"})
	}
	return c.JSON(dto.RunResponse{Run: latest})
}

// Record registra un reporte como el más reciente. Lo usa también el
// scheduler para que /api/runs/latest refleje las ejecuciones programadas.
func (h *SyncHandler) Record(report *ingest.RunReport) {
	if report == nil {
		return
	}
	h.mu.Lock()
	h.latest = report
	h.mu.Unlock()
}
