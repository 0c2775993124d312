package audit

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds audit service settings.
type Config struct {
	// HistoryRetentionDays is how long delivered notification history is
	// kept before cleanup. Default 90 days. The audit log itself is
	// never deleted.
	HistoryRetentionDays int

	// ExportOnStart runs an export immediately when the service starts.
	ExportOnStart bool

	// PlantName identifies this installation in report captions.
	PlantName string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HistoryRetentionDays: 90,
		ExportOnStart:        false,
		PlantName:            "vacation-manager",
	}
}

// Service runs the monthly export and history cleanup.
type Service struct {
	config   *Config
	exporter TableExporter
	writer   func() ReportWriter
	notifier Notifier
	cleaner  HistoryCleaner
	logger   zerolog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewService wires the export pipeline. The writer argument is a factory
// so each export gets a fresh workbook.
func NewService(
	config *Config,
	exporter TableExporter,
	writerFactory func() ReportWriter,
	notifier Notifier,
	cleaner HistoryCleaner,
	logger zerolog.Logger,
) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.HistoryRetentionDays <= 0 {
		config.HistoryRetentionDays = 90
	}

	return &Service{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		notifier: notifier,
		cleaner:  cleaner,
		logger:   logger.With().Str("component", "audit").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the monthly schedule.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go s.RunExportAndCleanup()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Int("retention_days", s.config.HistoryRetentionDays).
		Msg("audit service started")
}

// Stop gracefully stops the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("audit service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := nextFirstOfMonth(time.Now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info().Time("next_run", nextRun).Msg("next audit export scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.RunExportAndCleanup()

			nextRun = nextFirstOfMonth(time.Now())
			timer.Reset(time.Until(nextRun))
			s.logger.Info().Time("next_run", nextRun).Msg("next audit export scheduled")
		}
	}
}

// nextFirstOfMonth is the first day of the following month at 00:01.
func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

// RunExportAndCleanup performs the export and cleanup immediately.
func (s *Service) RunExportAndCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := s.exportData(ctx); err != nil {
		s.logger.Error().Err(err).Msg("audit export failed")
	}
	if err := s.cleanupHistory(ctx); err != nil {
		s.logger.Error().Err(err).Msg("history cleanup failed")
	}
}

func (s *Service) exportData(ctx context.Context) error {
	if s.exporter == nil || s.writer == nil {
		return fmt.Errorf("exporter or writer not configured")
	}

	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}
	if len(tables) == 0 {
		s.logger.Info().Msg("no tables to export")
		return nil
	}

	report := s.writer()
	if report == nil {
		return fmt.Errorf("failed to create report writer")
	}

	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("get table data")
			continue
		}
		if err := report.AddSheet(tableName); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("add sheet")
			continue
		}
		if err := report.WriteHeader(columns); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("write header")
			continue
		}

		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := report.WriteRow(rowData); err != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("write row")
			}
		}

		s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("table exported")
	}

	var buf bytes.Buffer
	if err := report.Save(&buf); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if s.notifier != nil {
		filename := PreviousMonthFilename()
		caption := fmt.Sprintf("📊 Monthly vacation report, %s", s.config.PlantName)

		if err := s.notifier.SendDocument(ctx, filename, &buf, caption); err != nil {
			return fmt.Errorf("send document: %w", err)
		}
		s.logger.Info().Str("filename", filename).Msg("audit report sent")
	}
	return nil
}

func (s *Service) cleanupHistory(ctx context.Context) error {
	if s.cleaner == nil {
		return nil
	}

	retention := time.Duration(s.config.HistoryRetentionDays) * 24 * time.Hour
	deleted, err := s.cleaner.DeleteOldHistory(ctx, retention)
	if err != nil {
		return fmt.Errorf("delete old history: %w", err)
	}

	s.logger.Info().
		Int64("deleted", deleted).
		Int("retention_days", s.config.HistoryRetentionDays).
		Msg("old notification history cleaned up")
	return nil
}

// ExportNow triggers an immediate export, used by the manual report
// endpoint.
func (s *Service) ExportNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	return s.exportData(ctx)
}

// CleanupNow triggers an immediate cleanup.
func (s *Service) CleanupNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return s.cleanupHistory(ctx)
}
