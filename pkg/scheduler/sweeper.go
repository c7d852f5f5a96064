// Package scheduler runs the hourly deadline sweep: the overdue flip,
// the upcoming and overdue notification passes, and the one-shot
// response reminders for unanswered documents.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gesdoc-gq/core/pkg/calendar"
	"github.com/gesdoc-gq/core/pkg/domain"
	"github.com/gesdoc-gq/core/pkg/notify"
	"github.com/gesdoc-gq/core/pkg/observability"
)

// DeadlineStore is the deadline persistence the sweeper needs.
// Implemented by store.DeadlineStore.
type DeadlineStore interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	DueWithin(ctx context.Context, now, until time.Time) ([]domain.Deadline, error)
	Overdue(ctx context.Context) ([]domain.Deadline, error)
}

// DocumentStore is the document persistence the response-reminder pass
// needs. Implemented by store.DocumentStore.
type DocumentStore interface {
	ResponseReminderCandidates(ctx context.Context, from, to time.Time) ([]domain.Document, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
	CountNeedingResponseReminder(ctx context.Context, now time.Time) (int, error)
	CountWithReminders(ctx context.Context) (int, error)
}

// Guard is the rolling notification window. Implemented by notify.Guard.
type Guard interface {
	AlreadyNotified(ctx context.Context, relatedID, relatedType string, kind notify.Kind, now time.Time) (bool, error)
}

// Notifier delivers in-app notifications and best-effort email.
// Implemented by notify.Dispatcher.
type Notifier interface {
	Create(ctx context.Context, userID string, kind notify.Kind, title, message, relatedID, relatedType string) error
	SendEmail(ctx context.Context, to, subject, body string)
}

// ReminderLog records sent reminders for the stats endpoint. Implemented
// by store.NotificationStore.
type ReminderLog interface {
	LogReminder(ctx context.Context, documentID, reminderType, method string, recipientIDs []string, sentAt time.Time) error
	ReminderCounts(ctx context.Context, dayStart time.Time) (total, today int, err error)
}

// DefaultInterval is the sweep cadence.
const DefaultInterval = time.Hour

// leaseTTL outlives any reasonable sweep but frees a crashed holder
// before the next tick.
const leaseTTL = 10 * time.Minute

// upcomingWindow is how far ahead the reminder pass looks.
const upcomingWindow = 24 * time.Hour

// Sweeper drives the periodic passes. One Sweep runs at a time per
// process; the optional Lock extends that across replicas.
type Sweeper struct {
	deadlines DeadlineStore
	documents DocumentStore
	guard     Guard
	notifier  Notifier
	reminders ReminderLog
	cal       *calendar.Calendar
	lock      Lock
	logger    *slog.Logger

	interval time.Duration
	now      func() time.Time
	running  atomic.Bool
	obs      *observability.Provider
}

func NewSweeper(deadlines DeadlineStore, documents DocumentStore, guard Guard, notifier Notifier, reminders ReminderLog, cal *calendar.Calendar, lock Lock, logger *slog.Logger) *Sweeper {
	if lock == nil {
		lock = NoopLock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		deadlines: deadlines,
		documents: documents,
		guard:     guard,
		notifier:  notifier,
		reminders: reminders,
		cal:       cal,
		lock:      lock,
		logger:    logger,
		interval:  DefaultInterval,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithInterval overrides the sweep cadence. Call before Run.
func (s *Sweeper) WithInterval(d time.Duration) *Sweeper {
	if d > 0 {
		s.interval = d
	}
	return s
}

// WithObservability attaches sweep and reminder metrics. Call before Run.
func (s *Sweeper) WithObservability(p *observability.Provider) *Sweeper {
	s.obs = p
	return s
}

func (s *Sweeper) recordSweep(ctx context.Context, outcome string) {
	if s.obs != nil {
		s.obs.RecordSweep(ctx, observability.SweepOperation(outcome)...)
	}
}

func (s *Sweeper) recordReminder(ctx context.Context, documentID, kind, state string) {
	if s.obs != nil {
		s.obs.RecordReminder(ctx, observability.ReminderOperation(documentID, kind, state)...)
	}
}

// Result summarizes one sweep.
type Result struct {
	SkippedOutsideHours bool  `json:"skippedOutsideHours"`
	SkippedLockHeld     bool  `json:"skippedLockHeld"`
	OverdueFlipped      int64 `json:"overdueFlipped"`
	UpcomingNotified    int   `json:"upcomingNotified"`
	UpcomingSuppressed  int   `json:"upcomingSuppressed"`
	OverdueNotified     int   `json:"overdueNotified"`
	OverdueSuppressed   int   `json:"overdueSuppressed"`
	RemindersSent       int   `json:"remindersSent"`
	Failures            int   `json:"failures"`
}

// Run loops until ctx is canceled, sweeping once per interval. The timer
// fires regardless of business hours; Sweep itself re-checks the gate so
// a calendar profile swap never needs a restart.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("deadline sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("deadline sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs one full pass. Safe to call manually while Run is
// active; an overlapping call returns immediately with SkippedLockHeld.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{SkippedLockHeld: true}, nil
	}
	defer s.running.Store(false)

	held, err := s.lock.Acquire(ctx, leaseTTL)
	if err != nil {
		return Result{}, err
	}
	if !held {
		return Result{SkippedLockHeld: true}, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.Warn("sweep lease release failed", "error", err)
		}
	}()

	now := s.now()
	if !s.cal.ShouldSendReminders(now) {
		s.logger.Debug("sweep skipped outside business hours", "at", now)
		s.recordSweep(ctx, "skipped_outside_hours")
		return Result{SkippedOutsideHours: true}, nil
	}

	var res Result

	flipped, err := s.deadlines.MarkOverdue(ctx, now)
	if err != nil {
		return res, fmt.Errorf("overdue flip: %w", err)
	}
	res.OverdueFlipped = flipped
	if flipped > 0 {
		s.logger.Info("deadlines flipped overdue", "count", flipped)
	}

	s.sweepUpcoming(ctx, now, &res)
	s.sweepOverdue(ctx, now, &res)
	s.sweepResponseReminders(ctx, now, &res)

	s.logger.Info("sweep finished",
		"overdue_flipped", res.OverdueFlipped,
		"upcoming_notified", res.UpcomingNotified,
		"overdue_notified", res.OverdueNotified,
		"reminders_sent", res.RemindersSent,
		"failures", res.Failures)
	s.recordSweep(ctx, "completed")

	return res, nil
}

// sweepUpcoming notifies responsibles of deadlines due within the next
// day, at most once per rolling window.
func (s *Sweeper) sweepUpcoming(ctx context.Context, now time.Time, res *Result) {
	due, err := s.deadlines.DueWithin(ctx, now, now.Add(upcomingWindow))
	if err != nil {
		s.logger.Error("upcoming pass failed", "error", err)
		res.Failures++
		return
	}

	for _, d := range due {
		seen, err := s.guard.AlreadyNotified(ctx, d.ID, "deadline", notify.KindDeadlineReminder, now)
		if err != nil {
			s.logger.Error("reminder guard check failed", "deadline_id", d.ID, "error", err)
			res.Failures++
			continue
		}
		if seen {
			res.UpcomingSuppressed++
			s.recordReminder(ctx, d.ID, string(notify.KindDeadlineReminder), "suppressed")
			continue
		}

		title := "Plazo próximo a vencer"
		message := fmt.Sprintf("El plazo %q vence el %s.", d.Title, d.DueDate.Format("02/01/2006 15:04"))
		if err := s.notifyDeadline(ctx, d, notify.KindDeadlineReminder, title, message); err != nil {
			s.logger.Error("upcoming reminder failed", "deadline_id", d.ID, "error", err)
			res.Failures++
			continue
		}
		res.UpcomingNotified++
		s.recordReminder(ctx, d.ID, string(notify.KindDeadlineReminder), "sent")
	}
}

// sweepOverdue notifies responsibles of already-overdue deadlines, again
// at most once per rolling window.
func (s *Sweeper) sweepOverdue(ctx context.Context, now time.Time, res *Result) {
	overdue, err := s.deadlines.Overdue(ctx)
	if err != nil {
		s.logger.Error("overdue pass failed", "error", err)
		res.Failures++
		return
	}

	for _, d := range overdue {
		seen, err := s.guard.AlreadyNotified(ctx, d.ID, "deadline", notify.KindDeadlineOverdue, now)
		if err != nil {
			s.logger.Error("overdue guard check failed", "deadline_id", d.ID, "error", err)
			res.Failures++
			continue
		}
		if seen {
			res.OverdueSuppressed++
			s.recordReminder(ctx, d.ID, string(notify.KindDeadlineOverdue), "suppressed")
			continue
		}

		title := "Plazo vencido"
		message := fmt.Sprintf("El plazo %q venció el %s.", d.Title, d.DueDate.Format("02/01/2006 15:04"))
		if err := s.notifyDeadline(ctx, d, notify.KindDeadlineOverdue, title, message); err != nil {
			s.logger.Error("overdue notification failed", "deadline_id", d.ID, "error", err)
			res.Failures++
			continue
		}
		res.OverdueNotified++
		s.recordReminder(ctx, d.ID, string(notify.KindDeadlineOverdue), "sent")
	}
}

func (s *Sweeper) notifyDeadline(ctx context.Context, d domain.Deadline, kind notify.Kind, title, message string) error {
	if d.ResponsibleID == nil {
		return nil
	}
	return s.notifier.Create(ctx, *d.ResponsibleID, kind, title, message, d.ID, "deadline")
}

// sweepResponseReminders sends the one-and-only response reminder for
// documents whose response deadline expired a day ago. The permanent
// counter is flipped first under a conditional update, so a racing sweep
// on another replica sends nothing.
func (s *Sweeper) sweepResponseReminders(ctx context.Context, now time.Time, res *Result) {
	candidates, err := s.documents.ResponseReminderCandidates(ctx, now.Add(-25*time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		s.logger.Error("response reminder pass failed", "error", err)
		res.Failures++
		return
	}

	for _, doc := range candidates {
		ok, err := s.documents.MarkReminderSent(ctx, doc.ID, now)
		if err != nil {
			s.logger.Error("reminder guard flip failed", "document_id", doc.ID, "error", err)
			res.Failures++
			continue
		}
		if !ok {
			// Another sweep claimed this document.
			continue
		}

		title := "Respuesta pendiente"
		message := fmt.Sprintf("El documento %s (%s) lleva más de 24 horas con la respuesta vencida.",
			doc.CorrelativeNumber, doc.Title)

		var recipients []string
		for _, target := range []*string{doc.ResponsibleID, doc.CreatedByID} {
			if target == nil {
				continue
			}
			recipients = append(recipients, *target)
			if err := s.notifier.Create(ctx, *target, notify.KindResponseReminder, title, message, doc.ID, "document"); err != nil {
				s.logger.Error("response reminder notification failed", "document_id", doc.ID, "user_id", *target, "error", err)
				res.Failures++
			}
		}
		if doc.ResponsibleEmail != nil {
			s.notifier.SendEmail(ctx, *doc.ResponsibleEmail, title, message)
		}

		if err := s.reminders.LogReminder(ctx, doc.ID, string(notify.KindResponseReminder), "EMAIL", recipients, now); err != nil {
			s.logger.Warn("reminder log write failed", "document_id", doc.ID, "error", err)
		}

		res.RemindersSent++
		s.recordReminder(ctx, doc.ID, string(notify.KindResponseReminder), "sent")
		s.logger.Info("response reminder sent", "document_id", doc.ID, "recipients", len(recipients))
	}
}

// Stats is the reminder dashboard snapshot.
type Stats struct {
	PendingResponseReminders int `json:"pendingResponseReminders"`
	DocumentsReminded        int `json:"documentsReminded"`
	RemindersLogged          int `json:"remindersLogged"`
	RemindersLoggedToday     int `json:"remindersLoggedToday"`
}

// ReminderStats aggregates the reminder counters.
func (s *Sweeper) ReminderStats(ctx context.Context) (Stats, error) {
	now := s.now()

	pending, err := s.documents.CountNeedingResponseReminder(ctx, now)
	if err != nil {
		return Stats{}, err
	}
	reminded, err := s.documents.CountWithReminders(ctx)
	if err != nil {
		return Stats{}, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	total, today, err := s.reminders.ReminderCounts(ctx, dayStart)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		PendingResponseReminders: pending,
		DocumentsReminded:        reminded,
		RemindersLogged:          total,
		RemindersLoggedToday:     today,
	}, nil
}
