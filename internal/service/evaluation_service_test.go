package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/escola-api/internal/models"
)

type mockEvaluationRepo struct {
	stored   map[string]models.RubricEvaluation
	failKeys map[string]bool
}

func (m *mockEvaluationRepo) FetchByStudent(ctx context.Context, scope models.EvaluationScope, studentID string) (map[string]models.RubricEvaluation, error) {
	result := make(map[string]models.RubricEvaluation)
	for key, evaluation := range m.stored {
		if evaluation.StudentID == studentID {
			result[key] = evaluation
		}
	}
	return result, nil
}

func (m *mockEvaluationRepo) FetchByScope(ctx context.Context, scope models.EvaluationScope) (map[string]map[string]models.RubricEvaluation, error) {
	result := make(map[string]map[string]models.RubricEvaluation)
	for key, evaluation := range m.stored {
		if result[evaluation.StudentID] == nil {
			result[evaluation.StudentID] = make(map[string]models.RubricEvaluation)
		}
		result[evaluation.StudentID][key] = evaluation
	}
	return result, nil
}

func (m *mockEvaluationRepo) Upsert(ctx context.Context, evaluation *models.RubricEvaluation) error {
	key := evaluation.Key()
	if m.failKeys[key] {
		return errors.New("write refused")
	}
	if m.stored == nil {
		m.stored = make(map[string]models.RubricEvaluation)
	}
	m.stored[key] = *evaluation
	return nil
}

func TestPendingEvaluationsToggleUndo(t *testing.T) {
	pending := NewPendingEvaluations()
	entry := models.PendingLevel{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelB}

	assert.True(t, pending.Toggle(entry))
	assert.Len(t, pending, 1)
	assert.False(t, pending.Toggle(entry))
	assert.Empty(t, pending)
}

func TestPendingEvaluationsToggleReplacesLevel(t *testing.T) {
	pending := NewPendingEvaluations()
	pending.Toggle(models.PendingLevel{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelB})
	assert.True(t, pending.Toggle(models.PendingLevel{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelA}))

	entries := pending.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.LevelA, entries[0].Level)
}

func flushRequest(entries ...PendingLevelRequest) FlushEvaluationsRequest {
	return FlushEvaluationsRequest{
		ClassID:   "class1",
		SubjectID: "sub1",
		Bimester:  1,
		Slot:      models.SlotAV1,
		Year:      2026,
		Entries:   entries,
	}
}

func TestFlushPendingPersistsEntries(t *testing.T) {
	repo := &mockEvaluationRepo{}
	svc := NewEvaluationService(repo, nil, nil)

	result, err := svc.FlushPending(context.Background(), testEvaluator(), flushRequest(
		PendingLevelRequest{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelA},
		PendingLevelRequest{StudentID: "stu1", RubricID: "r2", ComponentID: "c1", Level: models.LevelC},
	))
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.Len(t, result.Succeeded, 2)
	require.Len(t, repo.stored, 2)

	stored := repo.stored[models.EvaluationKey("stu1", "r1", "c1")]
	assert.Equal(t, models.LevelA, stored.Level)
	assert.Equal(t, "ev1", stored.EvaluatorID)
	assert.Equal(t, "class1", stored.ClassID)
}

func TestFlushPendingToggleTwiceIsNoop(t *testing.T) {
	repo := &mockEvaluationRepo{}
	svc := NewEvaluationService(repo, nil, nil)

	result, err := svc.FlushPending(context.Background(), testEvaluator(), flushRequest(
		PendingLevelRequest{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelB},
		PendingLevelRequest{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelB},
	))
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.Empty(t, result.Succeeded)
	assert.Empty(t, repo.stored)
}

func TestFlushPendingLastLevelWins(t *testing.T) {
	repo := &mockEvaluationRepo{}
	svc := NewEvaluationService(repo, nil, nil)

	result, err := svc.FlushPending(context.Background(), testEvaluator(), flushRequest(
		PendingLevelRequest{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelB},
		PendingLevelRequest{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelD},
	))
	require.NoError(t, err)
	assert.Len(t, result.Succeeded, 1)
	stored := repo.stored[models.EvaluationKey("stu1", "r1", "c1")]
	assert.Equal(t, models.LevelD, stored.Level)
}

func TestFlushPendingPartialFailure(t *testing.T) {
	repo := &mockEvaluationRepo{failKeys: map[string]bool{
		models.EvaluationKey("stu1", "r2", "c1"): true,
	}}
	svc := NewEvaluationService(repo, nil, nil)

	result, err := svc.FlushPending(context.Background(), testEvaluator(), flushRequest(
		PendingLevelRequest{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: models.LevelA},
		PendingLevelRequest{StudentID: "stu1", RubricID: "r2", ComponentID: "c1", Level: models.LevelA},
		PendingLevelRequest{StudentID: "stu2", RubricID: "r1", ComponentID: "c1", Level: models.LevelB},
	))
	require.NoError(t, err)
	assert.False(t, result.Ok())
	// Writes after the failed entry still land.
	assert.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, models.EvaluationKey("stu1", "r2", "c1"), result.Failed[0].Key)
	assert.Len(t, repo.stored, 2)
}

func TestFlushPendingRejectsInvalidLevel(t *testing.T) {
	svc := NewEvaluationService(&mockEvaluationRepo{}, nil, nil)
	_, err := svc.FlushPending(context.Background(), testEvaluator(), flushRequest(
		PendingLevelRequest{StudentID: "stu1", RubricID: "r1", ComponentID: "c1", Level: "F"},
	))
	require.Error(t, err)
}
