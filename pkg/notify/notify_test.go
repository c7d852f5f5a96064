package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesdoc-gq/core/pkg/store"
)

type memLedger struct {
	records   []store.NotificationRecord
	insertErr error
}

func (m *memLedger) Insert(_ context.Context, rec store.NotificationRecord) (store.NotificationRecord, error) {
	if m.insertErr != nil {
		return store.NotificationRecord{}, m.insertErr
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memLedger) RecentExists(_ context.Context, relatedID, relatedType, kind string, since time.Time) (bool, error) {
	for _, rec := range m.records {
		if rec.RelatedID == relatedID && rec.RelatedType == relatedType && rec.Kind == kind &&
			!rec.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type memMailer struct {
	sent []string
	err  error
}

func (m *memMailer) Send(_ context.Context, to, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func TestDispatcherCreate(t *testing.T) {
	ledger := &memLedger{}
	d := NewDispatcher(ledger, nil, nil)

	err := d.Create(context.Background(), "user-1", KindDeadlineReminder,
		"Plazo próximo a vencer", "mensaje", "dl-1", "deadline")
	require.NoError(t, err)

	require.Len(t, ledger.records, 1)
	assert.Equal(t, "user-1", ledger.records[0].UserID)
	assert.Equal(t, "DEADLINE_REMINDER", ledger.records[0].Kind)
	assert.Equal(t, "dl-1", ledger.records[0].RelatedID)
}

func TestDispatcherCreateWrapsErrors(t *testing.T) {
	ledger := &memLedger{insertErr: fmt.Errorf("connection reset")}
	d := NewDispatcher(ledger, nil, nil)

	err := d.Create(context.Background(), "user-1", KindDeadlineOverdue, "t", "m", "dl-1", "deadline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create notification")
}

func TestDispatcherSendEmailBestEffort(t *testing.T) {
	t.Run("nil mailer is a no-op", func(t *testing.T) {
		d := NewDispatcher(&memLedger{}, nil, nil)
		d.SendEmail(context.Background(), "a@b.test", "s", "b")
	})

	t.Run("empty recipient is a no-op", func(t *testing.T) {
		mailer := &memMailer{}
		d := NewDispatcher(&memLedger{}, mailer, nil)
		d.SendEmail(context.Background(), "", "s", "b")
		assert.Empty(t, mailer.sent)
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		mailer := &memMailer{err: fmt.Errorf("relay refused")}
		d := NewDispatcher(&memLedger{}, mailer, nil)
		d.SendEmail(context.Background(), "a@b.test", "s", "b")
	})

	t.Run("delivery", func(t *testing.T) {
		mailer := &memMailer{}
		d := NewDispatcher(&memLedger{}, mailer, nil)
		d.SendEmail(context.Background(), "a@b.test", "s", "b")
		assert.Equal(t, []string{"a@b.test"}, mailer.sent)
	})
}

func TestGuardWindow(t *testing.T) {
	ctx := context.Background()
	ledger := &memLedger{}
	guard := NewGuard(ledger)
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("no prior notification", func(t *testing.T) {
		hit, err := guard.AlreadyNotified(ctx, "dl-1", "deadline", KindDeadlineReminder, now)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	// One notification 22h ago: inside the 23h window.
	ledger.records = append(ledger.records, store.NotificationRecord{
		RelatedID: "dl-1", RelatedType: "deadline", Kind: "DEADLINE_REMINDER",
		CreatedAt: now.Add(-22 * time.Hour),
	})

	t.Run("suppressed inside the window", func(t *testing.T) {
		hit, err := guard.AlreadyNotified(ctx, "dl-1", "deadline", KindDeadlineReminder, now)
		require.NoError(t, err)
		assert.True(t, hit)
	})

	t.Run("different kind passes", func(t *testing.T) {
		hit, err := guard.AlreadyNotified(ctx, "dl-1", "deadline", KindDeadlineOverdue, now)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("different subject passes", func(t *testing.T) {
		hit, err := guard.AlreadyNotified(ctx, "dl-2", "deadline", KindDeadlineReminder, now)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("expired after the window", func(t *testing.T) {
		later := now.Add(2 * time.Hour) // notification is now 24h old
		hit, err := guard.AlreadyNotified(ctx, "dl-1", "deadline", KindDeadlineReminder, later)
		require.NoError(t, err)
		assert.False(t, hit)
	})
}

func TestNewSMTPMailerDefaults(t *testing.T) {
	m := NewSMTPMailer("smtp.ministerio.test:587", "gesdoc@ministerio.test", "", "", 0)
	require.NotNil(t, m)
	assert.Nil(t, m.auth)
	// Zero rate falls back to a sane default.
	assert.InDelta(t, 1.0, float64(m.limiter.Limit()), 0.01)
}
