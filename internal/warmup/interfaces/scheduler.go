package interfaces

import "context"

type SchedulerInterface interface {
	Init()
	Stop()
	WarmUp(ctx context.Context) error
}
