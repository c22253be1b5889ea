package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
)

// OverdueScanJob counts unpaid installments past their due date and
// exports the result as a gauge. It is purely observational: installments
// stay unpaid until a payment settles them.
type OverdueScanJob struct {
	loanRepo loan.Repository
	logger   *slog.Logger
}

func NewOverdueScanJob(loanRepo loan.Repository, logger *slog.Logger) *OverdueScanJob {
	if loanRepo == nil || logger == nil {
		panic("OverdueScanJob dependencies cannot be nil")
	}
	return &OverdueScanJob{
		loanRepo: loanRepo,
		logger:   logger.With("job", "OverdueScan"),
	}
}

func (j *OverdueScanJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting overdue installment scan.")

	count, err := j.loanRepo.CountOverdueInstallments(ctx, time.Now())
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to count overdue installments, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to count overdue installments: %w", err)
	}

	monitoring.SetOverdueInstallments(count)

	if count > 0 {
		j.logger.WarnContext(ctx, "Found overdue installments.", slog.Int("count", count))
	} else {
		j.logger.InfoContext(ctx, "No overdue installments found.")
	}
	j.logger.InfoContext(ctx, "Overdue installment scan finished.", slog.Duration("duration", time.Since(startTime)))
	return nil
}
