package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

// Scheduler dispara ejecuciones de ingesta según un cron spec. Cada disparo
// usa la fecha del día como fecha de consulta y entrega el reporte al
// callback (el handler HTTP lo guarda como "última ejecución").
type Scheduler struct {
	cron *cron.Cron
	uc   *ingest.RunUseCase
	log  *logger.Logger
}

// New registra el job con el cron spec dado. onReport puede ser nil.
func New(spec string, uc *ingest.RunUseCase, log *logger.Logger, onReport func(*ingest.RunReport)) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, uc: uc, log: log}

	_, err := c.AddFunc(spec, func() {
		baseDate := time.Now().Format("20060102")
		report, err := uc.Run(context.Background(), baseDate)
		if onReport != nil {
			onReport(report)
		}
		if err != nil {
			log.Error().Err(err).Str("base_date", baseDate).Msg("ejecución programada fallida")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start arranca el cron en segundo plano.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler iniciado")
}

// Stop detiene el cron y espera los jobs en curso.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler detenido")
}
