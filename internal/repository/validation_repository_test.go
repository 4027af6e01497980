package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

func TestValidationRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newTSIRepoMock(t)
	defer cleanup()
	repo := NewValidationRepository(db, nil)

	issue := "Negative priority"
	category := models.IssueCategoryPriority
	criticality := models.CriticalityHigh
	results := []models.ValidationResult{
		{ScheduleID: 3, BlockID: 1, Status: models.ValidationStatusValid},
		{ScheduleID: 3, BlockID: 2, Status: models.ValidationStatusError, IssueType: &issue, Category: &category, Criticality: &criticality},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_validation_results WHERE schedule_id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_validation_results")).
		WithArgs(
			int64(3), int64(1), "valid", nil, nil, nil, nil, nil, nil, nil,
			int64(3), int64(2), "error", issue, "priority", "High", nil, nil, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	removed, err := repo.DeleteBySchedule(context.Background(), tx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), removed)
	written, err := repo.InsertBatch(context.Background(), tx, results)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newTSIRepoMock(t)
	defer cleanup()
	repo := NewValidationRepository(db, nil)

	header := []string{"schedule_id", "scheduling_block_id", "status", "issue_type", "category", "criticality",
		"field_name", "current_value", "expected_value", "description", "original_block_id"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_validation_results v")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(header).
			AddRow(int64(3), int64(1), "valid", nil, nil, nil, nil, nil, nil, nil, "SB-1").
			AddRow(int64(3), int64(2), "impossible", "No visibility periods available", "visibility", "Critical",
				"total_visibility_hours", "0.000000", "> 0", "no windows", ""))

	rows, err := repo.ListBySchedule(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SB-1", rows[0].OriginalBlockID)
	assert.Nil(t, rows[0].IssueType)
	assert.Equal(t, models.ValidationStatusImpossible, rows[1].Status)
	assert.Equal(t, models.IssueCategoryVisibility, *rows[1].Category)
	assert.Equal(t, models.CriticalityCritical, *rows[1].Criticality)
	assert.NoError(t, mock.ExpectationsWereMet())
}
