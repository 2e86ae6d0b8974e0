package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"go_form_bot/database"
	"go_form_bot/storage"
	"go_form_bot/vault"
)

func TestParseRange(t *testing.T) {
	now := time.Date(2025, 3, 18, 15, 30, 0, 0, time.UTC)

	r, err := ParseRange(nil, now)
	require.NoError(t, err)
	assert.False(t, r.Explicit)
	assert.Equal(t, time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2025, 3, 18, 23, 59, 59, 999999999, time.UTC), r.To)

	r, err = ParseRange([]string{"01.03.2025", "10.03.2025"}, now)
	require.NoError(t, err)
	assert.True(t, r.Explicit)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, 10, r.To.Day())
	assert.Equal(t, 23, r.To.Hour())

	// перепутанные даты меняются местами
	r, err = ParseRange([]string{"10.03.2025", "01.03.2025"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, r.From.Day())

	_, err = ParseRange([]string{"2025-03-01", "10.03.2025"}, now)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestFileNameAndCaption(t *testing.T) {
	today, _ := ParseRange(nil, time.Now())
	assert.Equal(t, "yahoo_rapor.xlsx", FileName("yahoo", today))
	assert.Equal(t, "📊 Yahoo Raporu", Caption("yahoo", today))

	r, err := ParseRange([]string{"01.03.2025", "10.03.2025"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "yahoo_rapor_01032025-10032025.xlsx", FileName("yahoo", r))
	assert.Equal(t, "📊 Yahoo Raporu (01.03.2025 - 10.03.2025)", Caption("yahoo", r))
}

func TestRender(t *testing.T) {
	at := time.Date(2025, 3, 18, 9, 5, 0, 0, time.UTC)
	buf, err := Render("yahoo", []string{"Ad Soyad", "Telefon"}, []Row{
		{ID: 1, Values: []string{"Jane Doe", "5551234"}, CreatedAt: at},
		{ID: 2, Values: []string{"John Roe", "5559876"}, CreatedAt: at},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "yahoo", f.GetSheetName(0))
	rows, err := f.GetRows("yahoo")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Form No", "Ad Soyad", "Telefon", "Tarih"}, rows[0])
	assert.Equal(t, []string{"1", "Jane Doe", "5551234", "18.03.2025 09:05"}, rows[1])
	assert.Equal(t, "2", rows[2][0])
}

func TestRenderReportsExcelizeErrors(t *testing.T) {
	// Form No и Tarih выводят последнюю колонку за предел листа
	fields := make([]string, excelize.MaxColumns)
	for i := range fields {
		fields[i] = "f"
	}
	_, err := Render("genis", fields, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, excelize.ErrColumnNumber)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b", sheetName("a/b"))
	assert.Equal(t, "rapor", sheetName(""))
	assert.Len(t, []rune(sheetName("çok-uzun-bir-form-adı-otuz-bir-karakterden-fazla")), 31)
}

func TestServiceBuild(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 18, 12, 0, 0, 0, time.UTC)
	st := storage.NewWithClock(func() time.Time { return now })
	v, err := vault.New("test-key")
	require.NoError(t, err)

	require.NoError(t, st.CreateForm(ctx, database.Form{Name: "yahoo", GroupID: -1, Fields: []string{"Ad"}, CreatedBy: 42}))
	require.NoError(t, st.CreateForm(ctx, database.Form{Name: "yahoo", GroupID: -2, Fields: []string{"Ad"}, CreatedBy: 43}))
	insert := func(groupID int64, value string) {
		err := st.RunAdmission(ctx, func(tx database.AdmissionTx) error {
			data, err := v.Seal([]byte(value))
			if err != nil {
				return err
			}
			_, _, err = tx.InsertSubmission(ctx, database.NewSubmission{
				FormName: "yahoo", GroupID: groupID, Data: data, Fingerprint: v.Fingerprint(value),
			})
			return err
		})
		require.NoError(t, err)
	}
	insert(-1, "Ayşe")
	insert(-2, "Mehmet")
	insert(-1, "Fatma")

	svc := NewService(st, v, zap.NewNop())
	today, err := ParseRange(nil, now)
	require.NoError(t, err)

	rep, err := svc.Build(ctx, Request{FormName: "yahoo", CallerID: 42, Range: today})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Rows)
	assert.Equal(t, "yahoo_rapor.xlsx", rep.FileName)

	rep, err = svc.Build(ctx, Request{FormName: "yahoo", CallerID: 1, SuperAdmin: true, Range: today})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Rows)

	_, err = svc.Build(ctx, Request{FormName: "yahoo", CallerID: 99, Range: today})
	assert.ErrorIs(t, err, database.ErrFormNotFound)

	past, err := ParseRange([]string{"01.01.2024", "31.01.2024"}, now)
	require.NoError(t, err)
	_, err = svc.Build(ctx, Request{FormName: "yahoo", CallerID: 42, Range: past})
	assert.ErrorIs(t, err, ErrNoData)
}
