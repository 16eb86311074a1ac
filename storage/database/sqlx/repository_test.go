package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/dashboard"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/payment"
	"github.com/trezcool/schooloffice/core/result"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/core/user"
	emailsvc "github.com/trezcool/schooloffice/services/email"
	"github.com/trezcool/schooloffice/storage/database"
	sqlxrepos "github.com/trezcool/schooloffice/storage/database/sqlx"
	"github.com/trezcool/schooloffice/tests"
)

type services struct {
	usrRepo  user.Repository
	stdRepo  student.Repository
	rules    *ledger.Rules
	students *student.Service
	payments *payment.Service
	results  *result.Service
	contacts *contact.Service
	stats    *dashboard.Service
}

func setup(t *testing.T) services {
	db := testutil.PrepareDB(t)
	conf := testutil.NewConfig()
	tx := database.NewTransactor(db)

	svcs := services{
		usrRepo: sqlxrepos.NewUserRepository(db),
		stdRepo: sqlxrepos.NewStudentRepository(db),
	}
	svcs.rules = ledger.NewRules(conf.Fees, sqlxrepos.NewDeliveryRepository(db))
	svcs.payments = payment.NewService(tx, sqlxrepos.NewPaymentRepository(db), svcs.stdRepo, svcs.rules, conf.Fees)
	svcs.results = result.NewService(tx, sqlxrepos.NewResultRepository(db), svcs.stdRepo)
	svcs.students = student.NewService(tx, svcs.stdRepo, svcs.rules, svcs.payments, svcs.results)
	svcs.contacts = contact.NewService(sqlxrepos.NewContactRepository(db), emailsvc.NewConsoleServiceMock(conf), conf)
	svcs.stats = dashboard.NewService(sqlxrepos.NewDashboardRepository(db))
	return svcs
}

func TestUserRepository(t *testing.T) {
	svcs := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, svcs.usrRepo, "admin", "admin@school.test", "Adm1n!pass", true, true)
	assert.NotEmpty(t, usr.ID)

	found, err := svcs.usrRepo.GetUserByUsernameOrEmail(ctx, "admin@school.test")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, found.ID)

	_, err = svcs.usrRepo.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, user.ErrNotFound, err)

	found.Name = "Head Master"
	updated, err := svcs.usrRepo.UpdateUser(ctx, found)
	require.NoError(t, err)
	assert.Equal(t, "Head Master", updated.Name)
}

func TestStudentLifecycle(t *testing.T) {
	svcs := setup(t)
	ctx := context.Background()

	amani := testutil.CreateStudent(t, svcs.students, "S-001", "Amani Kabila", 1, student.SpecGeneral)
	bahati := testutil.CreateStudent(t, svcs.students, "S-002", "Bahati Mwamba", 2, student.SpecScientific)

	t.Run("duplicate code", func(t *testing.T) {
		_, err := svcs.students.Create(ctx, student.NewStudent{StudentCode: "S-001", Name: "Other", AcademicLevel: 1, Specialization: student.SpecGeneral})
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, err)
	})

	t.Run("payments", func(t *testing.T) {
		pmt := testutil.Pay(t, svcs.payments, amani.ID, 1, 100000)
		assert.True(t, pmt.UniformUnlocked)
		assert.Equal(t, "Amani Kabila", pmt.Receipt.StudentName)
		assert.Equal(t, 1, pmt.Receipt.InstallmentNumber)
		assert.Equal(t, "400000", pmt.Receipt.RemainingAmount.String())

		_, err := svcs.payments.RecordPayment(ctx, payment.NewPayment{StudentID: amani.ID, InstallmentNumber: 1})
		assert.True(t, core.IsConflict(err))

		testutil.Pay(t, svcs.payments, amani.ID, 2, 50000)
		paid, _, err := svcs.payments.StudentTotals(ctx, amani.ID)
		require.NoError(t, err)
		assert.Equal(t, "150000", paid.String())
	})

	t.Run("results", func(t *testing.T) {
		_, err := svcs.results.AddSubjectScore(ctx, result.NewSubjectScore{StudentID: bahati.ID, SubjectName: "Math", Score: testutil.DecPtr("15.5")})
		require.NoError(t, err)
		res, err := svcs.results.AddSubjectScore(ctx, result.NewSubjectScore{StudentID: bahati.ID, SubjectName: "Physics", Score: testutil.DecPtr("12")})
		require.NoError(t, err)
		assert.Equal(t, "27.5", res.TotalScore.String())
		assert.Len(t, res.Subjects, 2)

		_, err = svcs.results.AddSubjectScore(ctx, result.NewSubjectScore{StudentID: bahati.ID, SubjectName: "Math", Score: testutil.DecPtr("1")})
		assert.True(t, core.IsConflict(err))
	})

	t.Run("query", func(t *testing.T) {
		items, err := svcs.students.Query(ctx, student.QueryFilter{}, core.DBOrdering{Field: "name", Ascending: true})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "150000", items[0].TotalPaid.String())
		assert.True(t, items[0].UniformDelivered)
		assert.Equal(t, "27.5", items[1].TotalScore.String())

		items, err = svcs.students.Query(ctx, student.QueryFilter{Search: "mwamba"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, bahati.ID, items[0].ID)
	})

	t.Run("dashboard", func(t *testing.T) {
		stats, err := svcs.stats.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalStudents)
		assert.Equal(t, 1, stats.TotalUniformsDelivered)
		assert.Equal(t, 2, stats.TotalPayments)
		assert.Equal(t, map[string]int{"level_1": 1, "level_2": 1, "level_3": 0}, stats.StudentsByLevel)
	})

	t.Run("delete cascades", func(t *testing.T) {
		n, err := svcs.students.Delete(ctx, amani.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		insts, err := svcs.payments.QueryInstallments(ctx, payment.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, insts)
		_, err = svcs.results.GetByStudent(ctx, amani.ID)
		assert.Equal(t, result.ErrNotFound, err)
	})
}

func TestPaymentLimits(t *testing.T) {
	svcs := setup(t)
	ctx := context.Background()
	std := testutil.CreateStudent(t, svcs.students, "S-001", "Amani Kabila", 1, student.SpecGeneral)

	t.Run("receipt totals beyond a single amount", func(t *testing.T) {
		for number := 1; number <= 2; number++ {
			_, err := svcs.payments.RecordPayment(ctx, payment.NewPayment{StudentID: std.ID, InstallmentNumber: number, Amount: testutil.DecPtr("99999999.99")})
			require.NoError(t, err)
		}
		rcpts, err := svcs.payments.QueryReceipts(ctx, payment.QueryFilter{StudentID: std.ID})
		require.NoError(t, err)
		require.Len(t, rcpts, 2)
		assert.Equal(t, "199999999.98", rcpts[0].TotalPaid.String())
		assert.Equal(t, "-199499999.98", rcpts[0].RemainingAmount.String())
	})

	t.Run("concurrent payments of one installment", func(t *testing.T) {
		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svcs.payments.RecordPayment(ctx, payment.NewPayment{StudentID: std.ID, InstallmentNumber: 3})
			}(i)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, core.IsConflict(err), err)
		}
		assert.Equal(t, 1, succeeded)

		rcpts, err := svcs.payments.QueryReceipts(ctx, payment.QueryFilter{StudentID: std.ID})
		require.NoError(t, err)
		assert.Len(t, rcpts, 3)
	})
}

func TestContactRepository(t *testing.T) {
	svcs := setup(t)
	ctx := context.Background()

	msg, err := svcs.contacts.Create(ctx, contact.NewMessage{Name: "Neema", Email: "neema@mail.test", Subject: "Fees", Message: "Hello"})
	require.NoError(t, err)

	read := true
	msg, err = svcs.contacts.Update(ctx, msg.ID, contact.UpdateMessage{IsRead: &read})
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	msgs, err := svcs.contacts.Query(ctx, contact.QueryFilter{IsRead: &read})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	n, err := svcs.contacts.Delete(ctx, msg.ID, 999)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = svcs.contacts.GetByID(ctx, msg.ID)
	assert.Equal(t, contact.ErrNotFound, err)
}
