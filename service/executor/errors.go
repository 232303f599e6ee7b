package executor

import "errors"

var (
	ErrSchedulerRequired = errors.New("executor: scheduler is required")
	ErrInvalidGraph      = errors.New("executor: invalid graph")
	ErrTensorNotFound    = errors.New("executor: tensor not found")
)
