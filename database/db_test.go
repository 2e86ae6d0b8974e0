package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB подключается к TEST_DATABASE_URL; без него тесты пропускаются
func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	ctx := context.Background()
	db, err := New(ctx, url)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(db.Close)
	return db
}

// uniq — идентификаторы, не пересекающиеся между запусками
func uniq() int64 {
	return time.Now().UnixNano() / 1000
}

func TestLedgerPostgres(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	admin := uniq()
	t.Cleanup(func() { db.Pool.Exec(ctx, `DELETE FROM admin_credits WHERE admin_id = $1`, admin) })

	ok, err := db.Debit(ctx, admin, Rights(1))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Credit(ctx, admin, Rights(5)))
	assert.ErrorIs(t, db.Credit(ctx, admin, 0), ErrInvalidAmount)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := db.Debit(ctx, admin, Rights(1))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(5), wins.Load())

	balance, err := db.Balance(ctx, admin)
	require.NoError(t, err)
	assert.Zero(t, balance)

	// три начисления по 0.3334 права лежат в BIGINT без округления
	third, err := ParseCredits("0.3334")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Credit(ctx, admin, third))
	}
	balance, err = db.Balance(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, Credits(10002), balance)
}

func TestSubmissionsPostgres(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := uniq()
	group := -owner
	name := fmt.Sprintf("test_%d", owner)
	t.Cleanup(func() { db.DeleteForm(ctx, name, group) })

	require.NoError(t, db.CreateForm(ctx, Form{Name: name, GroupID: group, Fields: []string{"Ad", "Tel"}, CreatedBy: owner}))
	assert.ErrorIs(t, db.CreateForm(ctx, Form{Name: name, GroupID: group, Fields: []string{"Ad"}, CreatedBy: owner}), ErrFormExists)

	f, err := db.FindFormByOwner(ctx, name, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ad", "Tel"}, f.Fields)

	var ids []int64
	for _, fp := range []string{"a", "a", "b"} {
		err := db.RunAdmission(ctx, func(tx AdmissionTx) error {
			exists, err := tx.SubmissionExists(ctx, name, group, []byte(fp))
			if err != nil || exists {
				return err
			}
			id, inserted, err := tx.InsertSubmission(ctx, NewSubmission{
				FormName: name, GroupID: group, UserID: 1, ChatID: group, Data: []byte(fp), Fingerprint: []byte(fp),
			})
			if inserted {
				ids = append(ids, id)
			}
			return err
		})
		require.NoError(t, err)
	}
	require.Len(t, ids, 2)

	rows, err := db.ReportSubmissions(ctx, ReportQuery{
		FormName: name, OwnerID: owner, From: time.Now().Add(-time.Hour), To: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ids[0], rows[0].ID)

	ok, err := db.DeleteForm(ctx, name, group)
	require.NoError(t, err)
	assert.True(t, ok)

	sub, err := db.GetSubmission(ctx, ids[1])
	require.NoError(t, err)
	assert.Nil(t, sub)
}
