package points

import (
	"context"
	"fmt"
)

// Service contains the ledger domain logic over a Store and a
// StatisticsProvider.
type Service struct {
	store      Store
	statistics StatisticsProvider
	nowFn      func() int64
	logger     OperationLogger
}

// NewService wires a Service. The statistics provider may be nil when the
// distribution operation is not used.
func NewService(store Store, statistics StatisticsProvider, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, statistics: statistics, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// loadActiveProgram fetches a program and rejects any status but active.
func loadActiveProgram(ctx context.Context, store Store, programID ProgramID) (Program, error) {
	program, err := store.GetProgram(ctx, programID)
	if err != nil {
		return Program{}, err
	}
	if program.Status != ProgramStatusActive {
		return Program{}, fmt.Errorf("%w: program %s", ErrProgramInactive, programID.String())
	}
	return program, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
