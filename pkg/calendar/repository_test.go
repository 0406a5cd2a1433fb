package calendar

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/adflow/erp-calendar/internal/test_utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupRepositoryTest(t *testing.T) (context.Context, *RepositoryImpl, *pgxpool.Pool, int) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	userId := test_utils.InsertUser(t, db, "planner")
	return ctx, NewRepository(db), db, userId
}

var baseDate = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestRepositoryImpl_StoreAndGetEvent(t *testing.T) {
	// given
	ctx, repo, db, userId := setupRepositoryTest(t)
	projectId := test_utils.InsertProject(t, db, userId, "Spring campaign")
	end := baseDate.Add(2 * time.Hour)

	// when
	stored, err := repo.StoreEvent(ctx, userId, Event{
		Title:     "Kickoff",
		Date:      baseDate,
		EndDate:   &end,
		Type:      Meeting,
		Memo:      "bring slides",
		ProjectId: &projectId,
	})

	// then
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, stored.Id)

	fetched, err := repo.GetEvent(ctx, userId, stored.Id)
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", fetched.Title)
	assert.True(t, baseDate.Equal(fetched.Date))
	require.NotNil(t, fetched.EndDate)
	assert.True(t, end.Equal(*fetched.EndDate))
	assert.Equal(t, Meeting, fetched.Type)
	assert.Equal(t, "bring slides", fetched.Memo)
	assert.Equal(t, "Spring campaign", fetched.ProjectName)
	assert.False(t, fetched.Linked())
	assert.Nil(t, fetched.SyncedAt)
}

func TestRepositoryImpl_GetEvent_OtherUser(t *testing.T) {
	// given
	ctx, repo, db, userId := setupRepositoryTest(t)
	otherUserId := test_utils.InsertUser(t, db, "other")
	stored, err := repo.StoreEvent(ctx, userId, Event{Title: "Private", Date: baseDate})
	require.NoError(t, err)

	// when
	_, err = repo.GetEvent(ctx, otherUserId, stored.Id)

	// then
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepositoryImpl_ForeignProject(t *testing.T) {
	// given
	ctx, repo, db, userId := setupRepositoryTest(t)
	otherUserId := test_utils.InsertUser(t, db, "other agency")
	ownProjectId := test_utils.InsertProject(t, db, userId, "Spring campaign")
	foreignProjectId := test_utils.InsertProject(t, db, otherUserId, "Confidential pitch")

	// when
	ownOwned, err := repo.ProjectOwned(ctx, userId, ownProjectId)
	require.NoError(t, err)
	foreignOwned, err := repo.ProjectOwned(ctx, userId, foreignProjectId)
	require.NoError(t, err)
	missingOwned, err := repo.ProjectOwned(ctx, userId, foreignProjectId+1000)
	require.NoError(t, err)
	stored, err := repo.StoreEvent(ctx, userId, Event{Title: "Sneaky", Date: baseDate, ProjectId: &foreignProjectId})
	require.NoError(t, err)

	// then
	assert.True(t, ownOwned)
	assert.False(t, foreignOwned)
	assert.False(t, missingOwned)
	fetched, err := repo.GetEvent(ctx, userId, stored.Id)
	require.NoError(t, err)
	assert.Empty(t, fetched.ProjectName)
}

func TestRepositoryImpl_AllDay(t *testing.T) {
	// given
	ctx, repo, _, userId := setupRepositoryTest(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	stored, err := repo.StoreEvent(ctx, userId, Event{Title: "Shoot day", Date: day, AllDay: true})
	require.NoError(t, err)

	fetched, err := repo.GetEvent(ctx, userId, stored.Id)
	require.NoError(t, err)
	require.True(t, fetched.AllDay)

	// when
	err = repo.ApplyRemoteChanges(ctx, userId, stored.Id, RemoteChanges{Title: "Shoot day", Date: day.Add(9 * time.Hour)}, baseDate)
	require.NoError(t, err)

	// then
	timed, err := repo.GetEvent(ctx, userId, stored.Id)
	require.NoError(t, err)
	assert.False(t, timed.AllDay)

	timed.AllDay = true
	require.NoError(t, repo.UpdateEvent(ctx, userId, timed))
	fetched, err = repo.GetEvent(ctx, userId, stored.Id)
	require.NoError(t, err)
	assert.True(t, fetched.AllDay)
}

func TestRepositoryImpl_GetEvents_HalfOpenRange(t *testing.T) {
	// given
	ctx, repo, _, userId := setupRepositoryTest(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for title, date := range map[string]time.Time{
		"before":   from.Add(-time.Second),
		"at-start": from,
		"middle":   baseDate,
		"at-end":   to,
	} {
		_, err := repo.StoreEvent(ctx, userId, Event{Title: title, Date: date})
		require.NoError(t, err)
	}

	// when
	events, err := repo.GetEvents(ctx, userId, from, to)

	// then
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "at-start", events[0].Title)
	assert.Equal(t, "middle", events[1].Title)
}

func TestRepositoryImpl_Linkage(t *testing.T) {
	t.Run("should link and find by google event id", func(t *testing.T) {
		// given
		ctx, repo, _, userId := setupRepositoryTest(t)
		stored, err := repo.StoreEvent(ctx, userId, Event{Title: "Invoice due", Date: baseDate, Type: Invoice})
		require.NoError(t, err)
		syncedAt := baseDate.Add(time.Hour)

		// when
		err = repo.LinkGoogleEvent(ctx, userId, stored.Id, "g-1", syncedAt)

		// then
		require.NoError(t, err)
		found, err := repo.FindByGoogleEventId(ctx, userId, "g-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, stored.Id, found.Id)
		require.NotNil(t, found.SyncedAt)
		assert.True(t, syncedAt.Equal(*found.SyncedAt))

		count, err := repo.CountLinked(ctx, userId)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("should return nil when nothing is linked", func(t *testing.T) {
		// given
		ctx, repo, _, userId := setupRepositoryTest(t)

		// when
		found, err := repo.FindByGoogleEventId(ctx, userId, "g-missing")

		// then
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("should reject linking two events to the same google event", func(t *testing.T) {
		// given
		ctx, repo, _, userId := setupRepositoryTest(t)
		first, err := repo.StoreEvent(ctx, userId, Event{Title: "First", Date: baseDate})
		require.NoError(t, err)
		second, err := repo.StoreEvent(ctx, userId, Event{Title: "Second", Date: baseDate})
		require.NoError(t, err)
		require.NoError(t, repo.LinkGoogleEvent(ctx, userId, first.Id, "g-dup", baseDate))

		// when
		err = repo.LinkGoogleEvent(ctx, userId, second.Id, "g-dup", baseDate)

		// then
		assert.Error(t, err)
	})

	t.Run("should keep linkage on business update", func(t *testing.T) {
		// given
		ctx, repo, _, userId := setupRepositoryTest(t)
		stored, err := repo.StoreEvent(ctx, userId, Event{Title: "Draft", Date: baseDate})
		require.NoError(t, err)
		require.NoError(t, repo.LinkGoogleEvent(ctx, userId, stored.Id, "g-keep", baseDate))

		// when
		stored.Title = "Final"
		stored.Type = Deadline
		err = repo.UpdateEvent(ctx, userId, stored)

		// then
		require.NoError(t, err)
		fetched, err := repo.GetEvent(ctx, userId, stored.Id)
		require.NoError(t, err)
		assert.Equal(t, "Final", fetched.Title)
		assert.Equal(t, Deadline, fetched.Type)
		require.NotNil(t, fetched.GoogleEventId)
		assert.Equal(t, "g-keep", *fetched.GoogleEventId)
	})

	t.Run("should apply remote changes and touch synced at", func(t *testing.T) {
		// given
		ctx, repo, _, userId := setupRepositoryTest(t)
		stored, err := repo.StoreEvent(ctx, userId, Event{Title: "Old", Date: baseDate, Type: Payment})
		require.NoError(t, err)
		newDate := baseDate.Add(24 * time.Hour)
		syncedAt := baseDate.Add(48 * time.Hour)

		// when
		err = repo.ApplyRemoteChanges(ctx, userId, stored.Id, RemoteChanges{Title: "New", Date: newDate, Memo: "moved"}, syncedAt)
		require.NoError(t, err)
		touched := syncedAt.Add(time.Hour)
		err = repo.TouchSyncedAt(ctx, userId, stored.Id, touched)

		// then
		require.NoError(t, err)
		fetched, err := repo.GetEvent(ctx, userId, stored.Id)
		require.NoError(t, err)
		assert.Equal(t, "New", fetched.Title)
		assert.Equal(t, "moved", fetched.Memo)
		assert.Equal(t, Payment, fetched.Type)
		assert.True(t, newDate.Equal(fetched.Date))
		assert.True(t, touched.Equal(*fetched.SyncedAt))
	})

	t.Run("should unlink all events of the user only", func(t *testing.T) {
		// given
		ctx, repo, db, userId := setupRepositoryTest(t)
		otherUserId := test_utils.InsertUser(t, db, "other")
		mine, err := repo.StoreEvent(ctx, userId, Event{Title: "Mine", Date: baseDate})
		require.NoError(t, err)
		theirs, err := repo.StoreEvent(ctx, otherUserId, Event{Title: "Theirs", Date: baseDate})
		require.NoError(t, err)
		require.NoError(t, repo.LinkGoogleEvent(ctx, userId, mine.Id, "g-a", baseDate))
		require.NoError(t, repo.LinkGoogleEvent(ctx, otherUserId, theirs.Id, "g-a", baseDate))

		// when
		unlinked, err := repo.UnlinkAll(ctx, userId)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, unlinked)
		fetched, err := repo.GetEvent(ctx, userId, mine.Id)
		require.NoError(t, err)
		assert.Nil(t, fetched.GoogleEventId)
		assert.Nil(t, fetched.SyncedAt)
		otherCount, err := repo.CountLinked(ctx, otherUserId)
		require.NoError(t, err)
		assert.Equal(t, 1, otherCount)
	})
}

func TestRepositoryImpl_DeleteEvent(t *testing.T) {
	// given
	ctx, repo, _, userId := setupRepositoryTest(t)
	stored, err := repo.StoreEvent(ctx, userId, Event{Title: "Temp", Date: baseDate})
	require.NoError(t, err)

	// when
	err = repo.DeleteEvent(ctx, userId, stored.Id)

	// then
	require.NoError(t, err)
	_, err = repo.GetEvent(ctx, userId, stored.Id)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.ErrorIs(t, repo.DeleteEvent(ctx, userId, stored.Id), ErrEventNotFound)
}
