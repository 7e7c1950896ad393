package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/pkg/session"
)

type fakeRow struct {
	err    error
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case **string:
			*p = r.values[i].(*string)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeDB struct {
	row      pgx.Row
	execSQL  string
	execArgs []any
	tag      pgconn.CommandTag
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL, f.execArgs = sql, args
	return f.tag, nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func rowFor(t *testing.T, expiresAt time.Time, values map[string]any) fakeRow {
	t.Helper()
	data, err := json.Marshal(values)
	require.NoError(t, err)
	uid := "7f1b0e7c-5a0d-4c1e-9d7e-1d2b3c4d5e6f"
	now := time.Now()
	return fakeRow{values: []any{"id-1", "tok-1", &uid, data, "127.0.0.1", "test", false, now, now, expiresAt}}
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		t.Parallel()

		store := New(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
		_, err := store.Get(context.Background(), "tok")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("returns ErrExpired past expiry", func(t *testing.T) {
		t.Parallel()

		store := New(&fakeDB{row: rowFor(t, time.Now().Add(-time.Minute), nil)})
		_, err := store.Get(context.Background(), "tok-1")
		require.ErrorIs(t, err, session.ErrExpired)
	})

	t.Run("decodes values", func(t *testing.T) {
		t.Parallel()

		store := New(&fakeDB{row: rowFor(t, time.Now().Add(time.Hour), map[string]any{"k": "v"})})
		sess, err := store.Get(context.Background(), "tok-1")
		require.NoError(t, err)
		require.Equal(t, "id-1", sess.ID)
		require.Equal(t, "v", sess.Values["k"])
		require.True(t, sess.IsAuthenticated())
	})
}

func TestStore_UpdateMissing(t *testing.T) {
	t.Parallel()

	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	err := New(db).Update(context.Background(), session.New("id", "tok", time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestStore_DeleteByUserID(t *testing.T) {
	t.Parallel()

	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 2")}
	require.NoError(t, New(db).DeleteByUserID(context.Background(), "user-1"))
	require.Contains(t, db.execSQL, "WHERE user_id = $1")
	require.Equal(t, []any{"user-1"}, db.execArgs)
}

func TestStore_DeleteExpired(t *testing.T) {
	t.Parallel()

	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 3")}
	n, err := New(db).DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
