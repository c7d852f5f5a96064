package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesdoc-gq/core/pkg/calendar"
	"github.com/gesdoc-gq/core/pkg/domain"
	"github.com/gesdoc-gq/core/pkg/notify"
)

// Monday 2025-03-03 09:00 UTC is 10:00 in Malabo, inside business hours.
var businessHour = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type memDeadlines struct {
	flipped int64
	due     []domain.Deadline
	overdue []domain.Deadline
	err     error
}

func (m *memDeadlines) MarkOverdue(_ context.Context, _ time.Time) (int64, error) {
	return m.flipped, m.err
}

func (m *memDeadlines) DueWithin(_ context.Context, _, _ time.Time) ([]domain.Deadline, error) {
	return m.due, nil
}

func (m *memDeadlines) Overdue(_ context.Context) ([]domain.Deadline, error) {
	return m.overdue, nil
}

type memDocs struct {
	candidates []domain.Document
	reminded   map[string]bool
}

func (m *memDocs) ResponseReminderCandidates(_ context.Context, _, _ time.Time) ([]domain.Document, error) {
	return m.candidates, nil
}

func (m *memDocs) MarkReminderSent(_ context.Context, id string, _ time.Time) (bool, error) {
	if m.reminded == nil {
		m.reminded = map[string]bool{}
	}
	if m.reminded[id] {
		return false, nil
	}
	m.reminded[id] = true
	return true, nil
}

func (m *memDocs) CountNeedingResponseReminder(_ context.Context, _ time.Time) (int, error) {
	return len(m.candidates), nil
}

func (m *memDocs) CountWithReminders(_ context.Context) (int, error) {
	return len(m.reminded), nil
}

type memGuard struct {
	seen map[string]bool
}

func (g *memGuard) AlreadyNotified(_ context.Context, relatedID, relatedType string, kind notify.Kind, _ time.Time) (bool, error) {
	key := relatedType + "/" + relatedID + "/" + string(kind)
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[key] {
		return true, nil
	}
	g.seen[key] = true
	return false, nil
}

type memNotifier struct {
	created []string // "userID/kind"
	emails  []string
	failFor string
}

func (m *memNotifier) Create(_ context.Context, userID string, kind notify.Kind, _, _, relatedID, _ string) error {
	if m.failFor != "" && relatedID == m.failFor {
		return fmt.Errorf("notification store down")
	}
	m.created = append(m.created, userID+"/"+string(kind))
	return nil
}

func (m *memNotifier) SendEmail(_ context.Context, to, _, _ string) {
	m.emails = append(m.emails, to)
}

type memReminderLog struct {
	logged []string
}

func (m *memReminderLog) LogReminder(_ context.Context, documentID, _, _ string, _ []string, _ time.Time) error {
	m.logged = append(m.logged, documentID)
	return nil
}

func (m *memReminderLog) ReminderCounts(_ context.Context, _ time.Time) (int, int, error) {
	return len(m.logged), len(m.logged), nil
}

func newTestSweeper(t *testing.T, deadlines *memDeadlines, docs *memDocs, notifier *memNotifier) (*Sweeper, *memGuard, *memReminderLog) {
	t.Helper()
	guard := &memGuard{}
	log := &memReminderLog{}
	sw := NewSweeper(deadlines, docs, guard, notifier, log, calendar.Default(), nil, nil)
	sw.now = func() time.Time { return businessHour }
	return sw, guard, log
}

func deadline(id string, due time.Time) domain.Deadline {
	resp := "resp-" + id
	return domain.Deadline{ID: id, Title: "Plazo " + id, DueDate: due, ResponsibleID: &resp}
}

func TestSweepSkipsOutsideBusinessHours(t *testing.T) {
	sw, _, _ := newTestSweeper(t, &memDeadlines{flipped: 3}, &memDocs{}, &memNotifier{})
	// Sunday afternoon.
	sw.now = func() time.Time { return time.Date(2025, 3, 2, 14, 0, 0, 0, time.UTC) }

	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, res.SkippedOutsideHours)
	assert.Zero(t, res.OverdueFlipped)
}

func TestSweepFlipsAndNotifies(t *testing.T) {
	deadlines := &memDeadlines{
		flipped: 2,
		due:     []domain.Deadline{deadline("d1", businessHour.Add(5 * time.Hour))},
		overdue: []domain.Deadline{deadline("d2", businessHour.Add(-48 * time.Hour))},
	}
	notifier := &memNotifier{}
	sw, _, _ := newTestSweeper(t, deadlines, &memDocs{}, notifier)

	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, res.OverdueFlipped)
	assert.Equal(t, 1, res.UpcomingNotified)
	assert.Equal(t, 1, res.OverdueNotified)
	assert.ElementsMatch(t, []string{
		"resp-d1/DEADLINE_REMINDER",
		"resp-d2/DEADLINE_OVERDUE",
	}, notifier.created)
}

func TestSweepSuppressesWithinWindow(t *testing.T) {
	deadlines := &memDeadlines{
		due: []domain.Deadline{deadline("d1", businessHour.Add(5 * time.Hour))},
	}
	notifier := &memNotifier{}
	sw, _, _ := newTestSweeper(t, deadlines, &memDocs{}, notifier)

	_, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.UpcomingNotified)
	assert.Equal(t, 1, res.UpcomingSuppressed)
	assert.Len(t, notifier.created, 1)
}

func TestSweepResponseReminders(t *testing.T) {
	resp := "user-7"
	email := "despacho@ministerio.test"
	doc := domain.Document{
		ID:                "doc-1",
		CorrelativeNumber: "DOC-2025-0099",
		Title:             "Solicitud",
		RequiresResponse:  true,
		ResponsibleID:     &resp,
		ResponsibleEmail:  &email,
	}
	docs := &memDocs{candidates: []domain.Document{doc}}
	notifier := &memNotifier{}
	sw, _, log := newTestSweeper(t, &memDeadlines{}, docs, notifier)

	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.RemindersSent)
	assert.Equal(t, []string{"user-7/RESPONSE_REMINDER"}, notifier.created)
	assert.Equal(t, []string{email}, notifier.emails)
	assert.Equal(t, []string{"doc-1"}, log.logged)

	t.Run("permanent guard holds on the next sweep", func(t *testing.T) {
		res, err := sw.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.RemindersSent)
		assert.Len(t, notifier.emails, 1)
	})
}

func TestSweepIsolatesPerItemFailures(t *testing.T) {
	deadlines := &memDeadlines{
		due: []domain.Deadline{
			deadline("bad", businessHour.Add(2 * time.Hour)),
			deadline("good", businessHour.Add(3 * time.Hour)),
		},
	}
	notifier := &memNotifier{failFor: "bad"}
	sw, _, _ := newTestSweeper(t, deadlines, &memDocs{}, notifier)

	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.UpcomingNotified)
	assert.Equal(t, 1, res.Failures)
	assert.Contains(t, notifier.created, "resp-good/DEADLINE_REMINDER")
}

func TestSweepSingleFlight(t *testing.T) {
	sw, _, _ := newTestSweeper(t, &memDeadlines{}, &memDocs{}, &memNotifier{})
	sw.running.Store(true)

	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, res.SkippedLockHeld)
}

func TestReminderStats(t *testing.T) {
	resp := "user-1"
	docs := &memDocs{candidates: []domain.Document{{
		ID: "doc-1", RequiresResponse: true, ResponsibleID: &resp,
	}}}
	sw, _, _ := newTestSweeper(t, &memDeadlines{}, docs, &memNotifier{})

	_, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	stats, err := sw.ReminderStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsReminded)
	assert.Equal(t, 1, stats.RemindersLogged)
	assert.Equal(t, 1, stats.RemindersLoggedToday)
}
