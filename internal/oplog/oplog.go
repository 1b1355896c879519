// Package oplog adapts points.OperationLogger onto a zap logger.
package oplog

import (
	"context"

	"github.com/AuroraPeakLabs/points/pkg/points"
	"go.uber.org/zap"
)

// Logger writes one structured log line per ledger operation.
type Logger struct {
	logger *zap.Logger
}

// New returns a Logger over zap.
func New(logger *zap.Logger) *Logger {
	return &Logger{logger: logger}
}

// LogOperation implements points.OperationLogger.
func (operationLogger *Logger) LogOperation(_ context.Context, entry points.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("program_id", entry.ProgramID.String()),
		zap.Int64("amount", entry.Amount),
	}
	if entry.UserID.String() != "" {
		fields = append(fields, zap.String("user_id", entry.UserID.String()))
	}
	if entry.WalletID.String() != "" {
		fields = append(fields, zap.String("wallet_id", entry.WalletID.String()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("ledger operation failed", fields...)
		return
	}
	operationLogger.logger.Info("ledger operation", fields...)
}
