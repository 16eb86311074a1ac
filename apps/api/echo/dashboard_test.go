package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/tests"
)

func Test_dashboardApi_stats(t *testing.T) {
	app := newTestApp(t)

	t.Run("auth required", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/dashboard/stats", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty school", func(t *testing.T) {
		rec := app.authed(t, http.MethodGet, "/api/dashboard/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{
			"total_students": 0,
			"total_uniforms_delivered": 0,
			"total_payments": 0,
			"students_by_level": {"level_1": 0, "level_2": 0, "level_3": 0},
			"recent_payments": [],
			"unread_messages": 0,
			"recent_messages": []
		}`, rec.Body.String())
	})

	amani := testutil.CreateStudent(t, app.env.Students, "S-001", "Amani Kabila", 1, student.SpecGeneral)
	bahati := testutil.CreateStudent(t, app.env.Students, "S-002", "Bahati Mwamba", 1, student.SpecScientific)
	chausiku := testutil.CreateStudent(t, app.env.Students, "S-003", "Chausiku Ilunga", 3, student.SpecLiterary)
	testutil.Pay(t, app.env.Payments, amani.ID, 1, 100000)
	testutil.Pay(t, app.env.Payments, amani.ID, 2, 100000)
	testutil.Pay(t, app.env.Payments, bahati.ID, 1, 50000)
	for i := 2; i <= 5; i++ {
		testutil.Pay(t, app.env.Payments, chausiku.ID, i, 10000)
	}
	read := createMessage(t, app, "Neema", "Fees")
	createMessage(t, app, "Baraka", "Uniforms")
	_, err := app.env.Contacts.Update(context.Background(), read.ID, contact.UpdateMessage{IsRead: boolPtr(true)})
	require.NoError(t, err)

	t.Run("populated school", func(t *testing.T) {
		rec := app.authed(t, http.MethodGet, "/api/dashboard/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)

		assert.Equal(t, float64(3), data["total_students"])
		assert.Equal(t, float64(1), data["total_uniforms_delivered"])
		assert.Equal(t, float64(7), data["total_payments"])
		assert.Equal(t, map[string]interface{}{"level_1": float64(2), "level_2": float64(0), "level_3": float64(1)}, data["students_by_level"])
		assert.Len(t, data["recent_payments"], 5)
		assert.Equal(t, float64(1), data["unread_messages"])
		assert.Len(t, data["recent_messages"], 2)
	})
}

func boolPtr(b bool) *bool {
	return &b
}
