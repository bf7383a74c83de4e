package transaction

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/database"
	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
	"github.com/warning-explosive/Core-sub004/internal/testutil"
)

type order struct {
	ID      int64 `orm:"Id,pk"`
	Version int64 `orm:"Version,version"`
}

var orderType = reflect.TypeFor[*order]()

const txID = "01890a5d-ac96-774b-bcce-b302099a8057"

func begin(t *testing.T) (*Transaction, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := testutil.NewMock(t)
	d := database.New(db, database.Postgres, database.WithVersions(testutil.NewDeterministicClockAt(6)))

	mock.ExpectBegin()
	tx, err := Begin(context.Background(), d, WithIDGenerator(testutil.NewFixedIDGenerator(txID)))
	require.NoError(t, err)
	return tx, mock
}

func TestBegin(t *testing.T) {
	tx, mock := begin(t)

	assert.Equal(t, txID, tx.ID.String())
	assert.Equal(t, int64(7), tx.Version(), "version comes from the shared clock")
	assert.NotNil(t, tx.Store)
	assert.Empty(t, tx.Changes())

	mock.ExpectCommit()
	require.NoError(t, tx.Commit(context.Background()))
}

func TestBegin_VersionPerTransaction(t *testing.T) {
	db, mock := testutil.NewMock(t)
	d := database.New(db, database.Postgres)

	mock.ExpectBegin()
	mock.ExpectBegin()
	first, err := Begin(context.Background(), d)
	require.NoError(t, err)
	second, err := Begin(context.Background(), d)
	require.NoError(t, err)

	assert.Less(t, first.Version(), second.Version())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, uuid.Version(7), first.ID.Version())
}

func TestCommit_Reconciles(t *testing.T) {
	tests := []struct {
		name     string
		change   *Change
		conflict bool
	}{
		{
			name:   "update affected every captured row",
			change: &Change{Kind: ChangeUpdate, Type: orderType, Versions: map[int64]int64{7: 2}, Affected: 2},
		},
		{
			name:   "delete across versions",
			change: &Change{Kind: ChangeDelete, Type: orderType, Versions: map[int64]int64{3: 1, 5: 2}, Affected: 3},
		},
		{
			name:   "insert always reconciles",
			change: &Change{Kind: ChangeInsert, Type: orderType, Affected: 1},
		},
		{
			name:     "update lost a row",
			change:   &Change{Kind: ChangeUpdate, Type: orderType, Versions: map[int64]int64{7: 2}, Affected: 1},
			conflict: true,
		},
		{
			name:     "delete hit an unseen row",
			change:   &Change{Kind: ChangeDelete, Type: orderType, Affected: 1},
			conflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, mock := begin(t)
			tx.Record(tt.change)

			if !tt.conflict {
				mock.ExpectCommit()
				require.NoError(t, tx.Commit(context.Background()))
				return
			}

			mock.ExpectRollback()
			err := tx.Commit(context.Background())
			require.Error(t, err)
			assert.True(t, IsConcurrencyError(err))

			var ce *ConcurrencyError
			require.ErrorAs(t, err, &ce)
			assert.Same(t, tt.change, ce.Change)
			assert.Contains(t, err.Error(), ErrCodeConcurrencyConflict)
		})
	}
}

func TestConcurrencyError_Message(t *testing.T) {
	tx, mock := begin(t)
	tx.Record(&Change{Kind: ChangeUpdate, Type: orderType, Versions: map[int64]int64{7: 2}, Affected: 1})

	mock.ExpectRollback()
	err := tx.Commit(context.Background())
	assert.EqualError(t, err,
		"CONCURRENCY_CONFLICT: update of *transaction.order affected 1 rows, expected 2 (versions=map[7:2], transaction="+txID+")")
}

func TestCommit_CancelledContextRollsBack(t *testing.T) {
	tx, mock := begin(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectRollback()
	err := tx.Commit(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFinished(t *testing.T) {
	tx, mock := begin(t)

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback(context.Background()))
	require.NoError(t, tx.Rollback(context.Background()), "second rollback is a no-op")

	assert.ErrorIs(t, tx.Commit(context.Background()), ErrFinished)
	_, err := tx.Exec(context.Background(), &render.Command{Text: "SELECT 1"})
	assert.ErrorIs(t, err, ErrFinished)
	_, err = tx.Query(context.Background(), &render.Command{Text: "SELECT 1"})
	assert.ErrorIs(t, err, ErrFinished)
}

func TestExec_RunsInsideTransaction(t *testing.T) {
	tx, mock := begin(t)

	text := `DELETE FROM "public"."order" AS a`
	mock.ExpectExec(text).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`SELECT 1 WHERE @param_0`).
		WithArgs(pgx.NamedArgs{"param_0": true}).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	mock.ExpectCommit()

	n, err := tx.Exec(context.Background(), &render.Command{Text: text})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := tx.Query(context.Background(), &render.Command{
		Text:       `SELECT 1 WHERE @param_0`,
		Parameters: []*sqlexpr.QueryParameter{{Name: "param_0", Value: true}},
	})
	require.NoError(t, err)
	got, err := rows.Drain()
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, tx.Commit(context.Background()))
}

func TestChangeKind_String(t *testing.T) {
	assert.Equal(t, "insert", ChangeInsert.String())
	assert.Equal(t, "update", ChangeUpdate.String())
	assert.Equal(t, "delete", ChangeDelete.String())
	assert.Equal(t, "ChangeKind(9)", ChangeKind(9).String())
}
