package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooloffice/core/result"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/tests"
)

func studentResult(t *testing.T, app *testApp, studentID int) result.Result {
	res, err := app.env.Results.GetByStudent(context.Background(), studentID)
	require.NoError(t, err)
	return res
}

func subjectNames(data map[string]interface{}) []string {
	var names []string
	for _, sbj := range data["subjects"].([]interface{}) {
		names = append(names, sbj.(map[string]interface{})["subject_name"].(string))
	}
	return names
}

func Test_resultApi_addSubject(t *testing.T) {
	app := newTestApp(t)
	amani := testutil.CreateStudent(t, app.env.Students, "S-001", "Amani Kabila", 1, student.SpecGeneral)

	score := func(studentID int, subject string, score interface{}) map[string]interface{} {
		return map[string]interface{}{"student_id": studentID, "subject_name": subject, "score": score}
	}

	tests := []struct {
		name       string
		body       interface{}
		anon       bool
		wantCode   int
		wantData   interface{}
		wantFields []string
		wantTotal  string
		wantNames  []string
	}{
		{name: "auth required", body: score(amani.ID, "Math", 10), anon: true, wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "required fields", body: map[string]interface{}{}, wantCode: http.StatusBadRequest, wantFields: []string{"score", "student_id", "subject_name"}},
		{name: "blank subject", body: score(amani.ID, "   ", 10), wantCode: http.StatusBadRequest, wantFields: []string{"subject_name"}},
		{name: "negative score", body: score(amani.ID, "Math", -1), wantCode: http.StatusBadRequest, wantFields: []string{"score"}},
		{name: "score too high", body: score(amani.ID, "Math", 1000), wantCode: http.StatusBadRequest, wantFields: []string{"score"}},
		{name: "unknown student", body: score(999, "Math", 10), wantCode: http.StatusNotFound, wantData: httpErr{Error: "Student not found."}},
		{name: "first subject", body: score(amani.ID, " Math ", 15.5), wantCode: http.StatusCreated, wantTotal: "15.5", wantNames: []string{"Math"}},
		{name: "zero score", body: score(amani.ID, "Art", "0"), wantCode: http.StatusCreated, wantTotal: "15.5", wantNames: []string{"Art", "Math"}},
		{name: "second subject", body: score(amani.ID, "Physics", 12), wantCode: http.StatusCreated, wantTotal: "27.5", wantNames: []string{"Art", "Math", "Physics"}},
		{
			name: "duplicate subject", body: score(amani.ID, "Math", 20), wantCode: http.StatusConflict,
			wantData: httpErr{Error: `Subject "Math" already recorded for this student.`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cookies []*http.Cookie
			if !tt.anon {
				cookies = app.cookies
			}
			rec := app.do(t, http.MethodPost, "/api/results/add_subject", tt.body, cookies...)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantData != nil {
				assert.JSONEq(t, marshal(t, tt.wantData), rec.Body.String())
				return
			}
			data := decode(t, rec)
			if tt.wantCode == http.StatusBadRequest {
				for _, fld := range tt.wantFields {
					assert.Contains(t, data, fld)
				}
				assert.Len(t, data, len(tt.wantFields))
				return
			}
			assert.Equal(t, float64(amani.ID), data["student"])
			assert.Equal(t, tt.wantTotal, data["total_score"])
			assert.Equal(t, tt.wantNames, subjectNames(data))
		})
	}

	// the student's Result is the one that was updated
	res := studentResult(t, app, amani.ID)
	assert.Equal(t, "27.5", res.TotalScore.String())
	assert.Len(t, res.Subjects, 3)
}

func Test_resultApi_removeSubject(t *testing.T) {
	app := newTestApp(t)
	amani := testutil.CreateStudent(t, app.env.Students, "S-001", "Amani Kabila", 1, student.SpecGeneral)
	bahati := testutil.CreateStudent(t, app.env.Students, "S-002", "Bahati Mwamba", 1, student.SpecGeneral)

	ctx := context.Background()
	for name, score := range map[string]string{"Math": "15.5", "Physics": "12"} {
		_, err := app.env.Results.AddSubjectScore(ctx, result.NewSubjectScore{StudentID: amani.ID, SubjectName: name, Score: testutil.DecPtr(score)})
		require.NoError(t, err)
	}
	res := studentResult(t, app, amani.ID)
	require.Len(t, res.Subjects, 2)
	math := res.Subjects[0]
	otherRes := studentResult(t, app, bahati.ID)

	tests := []httpTest{
		{name: "auth required", method: http.MethodDelete, path: fmt.Sprintf("/api/results/%d/subjects/%d", res.ID, math.ID), anon: true, wantCode: http.StatusUnauthorized},
		{
			name: "subject of another result", method: http.MethodDelete, path: fmt.Sprintf("/api/results/%d/subjects/%d", otherRes.ID, math.ID),
			wantCode: http.StatusNotFound, wantData: httpErr{Error: "Not found."},
		},
		{name: "invalid subject id", method: http.MethodDelete, path: fmt.Sprintf("/api/results/%d/subjects/lol", res.ID), wantCode: http.StatusNotFound},
	}
	app.run(t, tests)

	rec := app.authed(t, http.MethodDelete, fmt.Sprintf("/api/results/%d/subjects/%d", res.ID, math.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)
	assert.Equal(t, "12", data["total_score"])
	assert.Equal(t, []string{"Physics"}, subjectNames(data))

	// already removed
	rec = app.authed(t, http.MethodDelete, fmt.Sprintf("/api/results/%d/subjects/%d", res.ID, math.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "12", studentResult(t, app, amani.ID).TotalScore.String())
}

func Test_resultApi_crud(t *testing.T) {
	app := newTestApp(t)
	amani := testutil.CreateStudent(t, app.env.Students, "S-001", "Amani Kabila", 1, student.SpecGeneral)
	bahati := testutil.CreateStudent(t, app.env.Students, "S-002", "Bahati Mwamba", 1, student.SpecGeneral)
	res := studentResult(t, app, amani.ID)
	path := fmt.Sprintf("/api/results/%d", res.ID)

	t.Run("list", func(t *testing.T) {
		rec := app.authed(t, http.MethodGet, "/api/results", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decodeList(t, rec), 2)

		rec = app.authed(t, http.MethodGet, fmt.Sprintf("/api/results?student=%d", amani.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		items := decodeList(t, rec)
		require.Len(t, items, 1)
		assert.Equal(t, float64(res.ID), items[0]["id"])
		assert.Equal(t, []interface{}{}, items[0]["subjects"])
	})

	t.Run("create returns the existing result", func(t *testing.T) {
		rec := app.authed(t, http.MethodPost, "/api/results", map[string]interface{}{"student": bahati.ID, "total_score": "42.5"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.Equal(t, float64(studentResult(t, app, bahati.ID).ID), data["id"])
		assert.Equal(t, "42.5", data["total_score"])
	})

	tests := []httpTest{
		{name: "create for unknown student", method: http.MethodPost, path: "/api/results", body: map[string]interface{}{"student": 999}, wantCode: http.StatusNotFound},
		{name: "create without student", method: http.MethodPost, path: "/api/results", body: map[string]interface{}{}, wantCode: http.StatusBadRequest},
		{name: "retrieve", method: http.MethodGet, path: path, wantCode: http.StatusOK},
		{name: "retrieve unknown", method: http.MethodGet, path: "/api/results/999", wantCode: http.StatusNotFound, wantData: httpErr{Error: "Not found."}},
		{name: "update without score", method: http.MethodPut, path: path, body: map[string]interface{}{}, wantCode: http.StatusBadRequest},
		{name: "update negative score", method: http.MethodPatch, path: path, body: map[string]interface{}{"total_score": -5}, wantCode: http.StatusBadRequest},
		{name: "update unknown", method: http.MethodPut, path: "/api/results/999", body: map[string]interface{}{"total_score": 5}, wantCode: http.StatusNotFound},
		{name: "auth required", method: http.MethodGet, path: path, anon: true, wantCode: http.StatusUnauthorized},
	}
	app.run(t, tests)

	t.Run("override total score", func(t *testing.T) {
		rec := app.authed(t, http.MethodPatch, path, map[string]interface{}{"total_score": 80})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "80", decode(t, rec)["total_score"])

		// the next subject change recomputes the total from the subjects
		rec = app.authed(t, http.MethodPost, "/api/results/add_subject", map[string]interface{}{
			"student_id": amani.ID, "subject_name": "Math", "score": 10,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "10", decode(t, rec)["total_score"])
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.authed(t, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = app.authed(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error": "Result not found."}`, rec.Body.String())

		_, err := app.env.Results.GetByStudent(context.Background(), amani.ID)
		assert.Equal(t, result.ErrNotFound, err)
	})
}
