package service

import (
	"context"
	"time"

	"github.com/alexanderramin/nutq/internal/notify"
	"github.com/alexanderramin/nutq/internal/repository"
)

type notificationService struct {
	live     LiveForest
	ledger   repository.NotificationRepo
	limit    int
	observer UseCaseObserver
}

// NewNotificationService schedules against the local ledger. A limit <= 0
// uses notify.DefaultCap.
func NewNotificationService(live LiveForest, ledger repository.NotificationRepo, limit int, observers ...UseCaseObserver) NotificationService {
	return &notificationService{
		live:     live,
		ledger:   ledger,
		limit:    limit,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *notificationService) Reconcile(ctx context.Context, now time.Time) (plan notify.Plan, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "reconcile-notifications",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields: map[string]any{
				"scheduled": len(plan.Schedule),
				"retracted": len(plan.Retract),
			},
		})
	}()

	return notify.Reconcile(ctx, s.ledger, s.live.Forest(), now, s.limit)
}

func (s *notificationService) Due(ctx context.Context, now time.Time) ([]repository.ScheduledNotification, error) {
	return s.ledger.ListDue(ctx, now)
}
