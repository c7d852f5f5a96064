package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesdoc-gq/core/pkg/domain"
)

var documentColumnNames = []string{
	"id", "correlative_number", "title", "direction", "requires_response",
	"response_received", "current_stage", "workflow_completed", "workflow_completed_at",
	"signed_at", "signed_by", "digital_signature_url", "physical_signature_url",
	"physical_seal_file", "seal_applied_at", "response_deadline", "reminders_sent",
	"last_reminder_sent_at", "created_by", "responsible_id", "responsible_email",
}

func TestDocumentStoreFindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDocumentStore(db)
	ctx := context.Background()

	rows := sqlmock.NewRows(documentColumnNames).
		AddRow("doc-1", "DOC-2025-0001", "Informe", "IN", true,
			false, "DECREED", false, nil,
			nil, nil, nil, nil,
			nil, nil, nil, 0,
			nil, "user-1", "user-2", "resp@ministerio.test")

	mock.ExpectQuery("FROM documents WHERE id = \\$1").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := store.FindByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, domain.DirectionIn, doc.Direction)
	require.NotNil(t, doc.CurrentStage)
	assert.Equal(t, domain.StageDecreed, *doc.CurrentStage)
	require.NotNil(t, doc.ResponsibleEmail)
	assert.Equal(t, "resp@ministerio.test", *doc.ResponsibleEmail)

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM documents WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(documentColumnNames))

		_, err := store.FindByID(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStoreSetCurrentStage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDocumentStore(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`UPDATE documents SET current_stage = $1 WHERE id = $2 AND current_stage = $3`)

	t.Run("winner", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("DECREE_PRINTED", "doc-1", "DECREED").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := store.SetCurrentStage(ctx, "doc-1", domain.StageDecreed, domain.StageDecreePrinted)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("loser matches zero rows", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("DECREE_PRINTED", "doc-1", "DECREED").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := store.SetCurrentStage(ctx, "doc-1", domain.StageDecreed, domain.StageDecreePrinted)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStoreSetSignatureWriteOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDocumentStore(db)
	ctx := context.Background()
	now := time.Now().UTC()
	url := "s3://gesdoc/signatures/firma.pdf"

	mock.ExpectExec("UPDATE documents").
		WithArgs(now, "signer-1", url, nil, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.SetSignature(ctx, "doc-1", now, "signer-1", &url, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second signature hits the signed_at IS NULL guard.
	mock.ExpectExec("UPDATE documents").
		WithArgs(now, "signer-1", url, nil, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = store.SetSignature(ctx, "doc-1", now, "signer-1", &url, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStoreMarkReminderSentGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDocumentStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs(now, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := store.MarkReminderSent(ctx, "doc-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE documents").
		WithArgs(now, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = store.MarkReminderSent(ctx, "doc-1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStoreSignatureStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDocumentStore(db)
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WithArgs(
			time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
			now.AddDate(0, 0, -7),
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		).
		WillReturnRows(sqlmock.NewRows([]string{"total", "today", "week", "month", "sealed"}).
			AddRow(40, 2, 9, 25, 30))

	st, err := store.SignatureStats(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 40, st.TotalSigned)
	assert.Equal(t, 2, st.SignedToday)
	assert.Equal(t, 30, st.WithSeal)
	assert.Equal(t, 10, st.WithoutSeal)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStageStoreConditionalTransitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStageStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("complete from admissible status", func(t *testing.T) {
		mock.ExpectExec("UPDATE workflow_stages").
			WithArgs(now, "user-1", nil, nil, "st-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := store.Complete(ctx, "st-1", "user-1", now, nil, nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("complete loses the race", func(t *testing.T) {
		mock.ExpectExec("UPDATE workflow_stages").
			WithArgs(now, "user-1", nil, nil, "st-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := store.Complete(ctx, "st-1", "user-1", now, nil, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("skip records approver", func(t *testing.T) {
		mock.ExpectExec("UPDATE workflow_stages").
			WithArgs("No requerido para este expediente", "admin-1", now, "st-2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := store.Skip(ctx, "st-2", "No requerido para este expediente", "admin-1", now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("delete refuses completed rows", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM workflow_stages").
			WithArgs("st-3").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := store.Delete(ctx, "st-3")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStageStoreCreateMarshalsMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStageStore(db)

	mock.ExpectExec("INSERT INTO workflow_stages").
		WithArgs(sqlmock.AnyArg(), "doc-1", "AI_SUMMARY", "PENDING", nil, `{"source":"scanner"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	row, err := store.Create(context.Background(), "doc-1", domain.StageAISummary, nil, map[string]any{"source": "scanner"})
	require.NoError(t, err)
	assert.Equal(t, domain.StagePending, row.Status)
	assert.NotEmpty(t, row.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineStoreMarkOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewDeadlineStore(db)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE deadlines SET status = 'OVERDUE'").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.MarkOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStoreRecentExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewNotificationStore(db)
	since := time.Now().UTC().Add(-23 * time.Hour)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("dl-1", "deadline", "DEADLINE_REMINDER", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	hit, err := store.RecentExists(context.Background(), "dl-1", "deadline", "DEADLINE_REMINDER", since)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreDesignatedSigner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)

	mock.ExpectQuery("SELECT id, email, first_name, last_name, position, role").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "position", "role"}).
			AddRow("admin-1", "ministro@ministerio.test", "Juan", "Nguema", "Ministro", "ADMIN"))

	u, err := store.DesignatedSigner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin-1", u.ID)
	assert.Equal(t, "Juan Nguema", u.FullName())
	assert.Equal(t, domain.RoleAdmin, u.Role)

	t.Run("no admin configured", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, first_name, last_name, position, role").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "position", "role"}))

		_, err := store.DesignatedSigner(context.Background())
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)

	mock.ExpectQuery("SELECT role FROM users").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("SECRETARY"))

	role, err := store.Role(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSecretary, role)

	require.NoError(t, mock.ExpectationsWereMet())
}
