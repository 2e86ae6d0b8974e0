package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_form_bot/database"
)

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Credit(ctx, 1, database.Rights(5)))

	for _, amount := range []database.Credits{0, -1} {
		assert.ErrorIs(t, s.Credit(ctx, 1, amount), database.ErrInvalidAmount)
		_, err := s.Debit(ctx, 1, amount)
		assert.ErrorIs(t, err, database.ErrInvalidAmount)
	}
	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, database.Rights(5), balance)
}

func TestDebitUnknownAdminFailsClosed(t *testing.T) {
	ctx := context.Background()
	s := New()

	ok, err := s.Debit(ctx, 404, database.Rights(1))
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err := s.Balance(ctx, 404)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Credit(ctx, 1, database.Rights(10)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Debit(ctx, 1, database.Rights(1))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), wins.Load())
	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestFormsAreScopedByGroup(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateForm(ctx, database.Form{Name: "kayit", GroupID: -1, Fields: []string{"Ad"}, CreatedBy: 1}))
	require.NoError(t, s.CreateForm(ctx, database.Form{Name: "kayit", GroupID: -2, Fields: []string{"Ad", "Tel"}, CreatedBy: 2}))
	assert.ErrorIs(t, s.CreateForm(ctx, database.Form{Name: "kayit", GroupID: -1, CreatedBy: 3}), database.ErrFormExists)

	f, err := s.GetForm(ctx, "kayit", -2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ad", "Tel"}, f.Fields)

	f.Fields[0] = "değişti"
	again, err := s.GetForm(ctx, "kayit", -2)
	require.NoError(t, err)
	assert.Equal(t, "Ad", again.Fields[0])

	_, err = s.FindFormByOwner(ctx, "kayit", 3)
	assert.ErrorIs(t, err, database.ErrFormNotFound)
}

func insert(t *testing.T, s *Storage, form string, groupID int64, fp string) int64 {
	t.Helper()
	var id int64
	err := s.RunAdmission(context.Background(), func(tx database.AdmissionTx) error {
		var inserted bool
		var err error
		id, inserted, err = tx.InsertSubmission(context.Background(), database.NewSubmission{
			FormName: form, GroupID: groupID, Data: []byte(fp), Fingerprint: []byte(fp),
		})
		require.True(t, inserted)
		return err
	})
	require.NoError(t, err)
	return id
}

func TestDeleteFormCascadesSubmissions(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateForm(ctx, database.Form{Name: "kayit", GroupID: -1, Fields: []string{"Ad"}, CreatedBy: 1}))
	id := insert(t, s, "kayit", -1, "a")

	ok, err := s.DeleteForm(ctx, "kayit", -1)
	require.NoError(t, err)
	assert.True(t, ok)

	sub, err := s.GetSubmission(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, sub)

	ok, err = s.DeleteForm(ctx, "kayit", -1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdmissionRollbackRestoresCredit(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Credit(ctx, 1, database.Rights(2)))

	err := s.RunAdmission(ctx, func(tx database.AdmissionTx) error {
		ok, err := tx.Debit(ctx, 1, database.Rights(1))
		require.True(t, ok)
		require.NoError(t, err)
		return database.ErrFormNotFound
	})
	assert.ErrorIs(t, err, database.ErrFormNotFound)

	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, database.Rights(2), balance)
}

func TestReportRangeAndOwner(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	s := NewWithClock(func() time.Time { return now })
	require.NoError(t, s.CreateForm(ctx, database.Form{Name: "kayit", GroupID: -1, Fields: []string{"Ad"}, CreatedBy: 1}))
	require.NoError(t, s.CreateForm(ctx, database.Form{Name: "kayit", GroupID: -2, Fields: []string{"Ad"}, CreatedBy: 2}))

	first := insert(t, s, "kayit", -1, "a")
	insert(t, s, "kayit", -2, "b")
	now = now.Add(48 * time.Hour)
	third := insert(t, s, "kayit", -1, "c")

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	rows, err := s.ReportSubmissions(ctx, database.ReportQuery{FormName: "kayit", OwnerID: 1, From: day, To: day.Add(24*time.Hour - time.Second)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first, rows[0].ID)

	rows, err = s.ReportSubmissions(ctx, database.ReportQuery{FormName: "kayit", From: day, To: day.Add(72 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, third, rows[2].ID)
}

func TestGroupsAndAdmins(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddAdmin(ctx, 1, "ayse", 0))
	require.NoError(t, s.AddAdmin(ctx, 2, "mehmet", 0))
	require.NoError(t, s.AddGroup(ctx, -1, "Muhasebe", 1))
	assert.ErrorIs(t, s.AddGroup(ctx, -1, "Muhasebe", 2), database.ErrGroupExists)

	ok, err := s.IsAuthorizedGroup(ctx, -1)
	require.NoError(t, err)
	assert.True(t, ok)

	// чужую группу админ удалить не может
	ok, err = s.RemoveGroup(ctx, -1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.RemoveGroup(ctx, -1, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsAuthorizedGroup(ctx, -1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordPaymentOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := database.Payment{PaymentID: "np-1", AdminID: 9, AdminName: "ali", Amount: "100", Currency: "usd", Credited: database.Rights(10)}

	ok, err := s.RecordPayment(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.RecordPayment(ctx, p)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err := s.Balance(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, database.Rights(10), balance)

	isAdmin, err := s.IsAdmin(ctx, 9)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestFractionalGrantsSumExactly(t *testing.T) {
	ctx := context.Background()
	s := New()
	price, err := database.ParseDecimal("10")
	require.NoError(t, err)
	oneTL, err := database.ParseDecimal("1")
	require.NoError(t, err)

	// десять пополнений по 1 TL при цене 10 TL дают ровно одно право
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Credit(ctx, 1, database.CreditsForPayment(oneTL, price)))
	}
	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, database.Rights(1), balance)

	ok, err := s.Debit(ctx, 1, database.Rights(1))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListAdminsCarriesBalances(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddAdmin(ctx, 2, "mehmet", 0))
	require.NoError(t, s.AddAdmin(ctx, 1, "ayse", 0))
	require.NoError(t, s.Credit(ctx, 2, database.Rights(3)))

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, int64(1), admins[0].UserID)
	assert.Zero(t, admins[0].Credits)
	assert.Equal(t, database.Rights(3), admins[1].Credits)
}
