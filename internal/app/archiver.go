package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/metrics"
)

const archiveWriteTimeout = 10 * time.Second

// dbArchiver mirrors core state changes into PostgreSQL. Every write runs in
// a background goroutine so the router never blocks on the database; failures
// are logged and counted, never surfaced to the realtime layer.
type dbArchiver struct {
	rounds        domain.RoundRepository
	notifications domain.NotificationRepository
	wg            sync.WaitGroup
}

func newDBArchiver(rounds domain.RoundRepository, notifications domain.NotificationRepository) *dbArchiver {
	return &dbArchiver{rounds: rounds, notifications: notifications}
}

var _ domain.Archiver = (*dbArchiver)(nil)

func (a *dbArchiver) SessionStarted(session domain.Session) {
	a.submit("round_insert", func(ctx context.Context) error {
		return a.rounds.Insert(ctx, domain.RoundRecord{
			ID:          session.ID,
			HostessID:   session.HostessID,
			WardID:      session.WardID,
			HospitalID:  session.HospitalID,
			Status:      session.Status,
			MealCount:   session.MealCount,
			MealsServed: session.MealsServed,
			StartedAt:   session.StartedAt,
		})
	})
}

func (a *dbArchiver) SessionCompleted(session domain.Session) {
	a.submit("round_complete", func(ctx context.Context) error {
		return a.rounds.MarkCompleted(ctx, session.ID, session.CompletedAt, session.MealsServed, session.Summary)
	})
}

func (a *dbArchiver) AlertRaised(alert domain.Alert, hostessID string) {
	a.submit("notification_insert", func(ctx context.Context) error {
		return a.notifications.Insert(ctx, alert, hostessID)
	})
}

func (a *dbArchiver) submit(kind string, write func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
		defer cancel()

		if err := write(ctx); err != nil {
			slog.Error("Archive write failed", "kind", kind, "error", err)
			metrics.ArchiveWritesTotal.WithLabelValues(kind, "error").Inc()
			return
		}
		metrics.ArchiveWritesTotal.WithLabelValues(kind, "ok").Inc()
	}()
}

// wait blocks until all in-flight archive writes have finished.
func (a *dbArchiver) wait() {
	a.wg.Wait()
}

// noopArchiver is used when no database is configured.
type noopArchiver struct{}

var _ domain.Archiver = noopArchiver{}

func (noopArchiver) SessionStarted(domain.Session)    {}
func (noopArchiver) SessionCompleted(domain.Session)  {}
func (noopArchiver) AlertRaised(domain.Alert, string) {}
