package result_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/result"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/tests"
)

func TestCheckScore(t *testing.T) {
	tests := []struct {
		score   string
		wantErr string
	}{
		{score: "0"},
		{score: "17.25"},
		{score: "999.99"},
		{score: "-0.01", wantErr: "score must be greater than or equal to 0"},
		{score: "10.125", wantErr: "score must not have more than 2 decimal places"},
		{score: "1000", wantErr: "score must be less than or equal to 999.99"},
	}
	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			fErr := result.CheckScore("score", testutil.Dec(tt.score))
			if tt.wantErr == "" {
				assert.Nil(t, fErr)
				return
			}
			require.NotNil(t, fErr)
			assert.Equal(t, "score", fErr.Field)
			assert.Equal(t, tt.wantErr, fErr.Error)
		})
	}
}

func TestService_subjects(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	std := testutil.CreateStudent(t, env.Students, "S-001", "Amani Kabila", 1, student.SpecGeneral)

	add := func(subject, score string) (result.Result, error) {
		return env.Results.AddSubjectScore(ctx, result.NewSubjectScore{StudentID: std.ID, SubjectName: subject, Score: testutil.DecPtr(score)})
	}

	res, err := add("Math", "15.5")
	require.NoError(t, err)
	assert.Equal(t, "15.5", res.TotalScore.String())

	res, err = add("  History ", "12.25")
	require.NoError(t, err)
	assert.Equal(t, "27.75", res.TotalScore.String())
	require.Len(t, res.Subjects, 2)
	assert.Equal(t, "History", res.Subjects[0].SubjectName)

	t.Run("duplicate subject leaves the result as is", func(t *testing.T) {
		_, err := add("Math", "20")
		assert.True(t, core.IsConflict(err))

		res, err := env.Results.GetByStudent(ctx, std.ID)
		require.NoError(t, err)
		assert.Equal(t, "27.75", res.TotalScore.String())
		assert.Len(t, res.Subjects, 2)
	})

	t.Run("total above the maximum is rejected", func(t *testing.T) {
		_, err := add("Physics", "980")
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "total_score", vErr.Fields[0].Field)

		// rolled back
		res, err := env.Results.GetByStudent(ctx, std.ID)
		require.NoError(t, err)
		assert.Len(t, res.Subjects, 2)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := env.Results.AddSubjectScore(ctx, result.NewSubjectScore{StudentID: 999, SubjectName: "Math", Score: testutil.DecPtr("1")})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("remove subject", func(t *testing.T) {
		res, err := env.Results.RemoveSubject(ctx, res.ID, res.Subjects[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "15.5", res.TotalScore.String())
		assert.Len(t, res.Subjects, 1)

		_, err = env.Results.RemoveSubject(ctx, res.ID, 999)
		assert.Equal(t, result.ErrSubjectNotFound, err)
	})
}

func TestService_SetTotalScore(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	std := testutil.CreateStudent(t, env.Students, "S-001", "Amani Kabila", 1, student.SpecGeneral)

	res, err := env.Results.SetTotalScore(ctx, std.ID, testutil.Dec("88.5"))
	require.NoError(t, err)
	assert.Equal(t, "88.5", res.TotalScore.String())

	_, err = env.Results.SetTotalScore(ctx, std.ID, testutil.Dec("-1"))
	assert.Error(t, err)

	// a student without a Result gets one
	other, err := env.StdRepo.CreateStudent(ctx, student.Student{StudentCode: "S-002", Name: "Bahati", AcademicLevel: 1, Specialization: student.SpecGeneral})
	require.NoError(t, err)
	res, err = env.Results.SetTotalScore(ctx, other.ID, testutil.Dec("10"))
	require.NoError(t, err)
	assert.Equal(t, other.ID, res.StudentID)

	n, err := env.Results.CreateMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
