package service

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/escola-api/internal/models"
)

func TestRestoreSnapshotValuesMatchesByName(t *testing.T) {
	components := []models.CompositionComponent{
		{ID: "new-1", Name: "Prova", MaxValue: 5},
		{ID: "new-2", Name: "Trabalho", MaxValue: 3},
		{ID: "new-3", Name: "Seminário", MaxValue: 2},
	}
	snapshot := models.SnapshotList{
		{Name: "Prova", MaxValue: 5, Value: floatPtr(4.5)},
		{Name: "Trabalho", MaxValue: 3, Value: floatPtr(2.4)},
		{Name: "Participação", MaxValue: 2, Value: floatPtr(1.6)},
	}

	restored := RestoreSnapshotValues(components, snapshot)
	require.Len(t, restored, 3)
	require.NotNil(t, restored[0].Value)
	assert.InDelta(t, 4.5, *restored[0].Value, 0.0001)
	require.NotNil(t, restored[1].Value)
	assert.InDelta(t, 2.4, *restored[1].Value, 0.0001)
	// Renamed component: the old "Participação" value does not carry over.
	assert.Nil(t, restored[2].Value)
}

func TestRestoreSnapshotValuesDoesNotMutateInput(t *testing.T) {
	components := []models.CompositionComponent{{ID: "c1", Name: "Prova", MaxValue: 5}}
	snapshot := models.SnapshotList{{Name: "Prova", MaxValue: 5, Value: floatPtr(3.0)}}

	restored := RestoreSnapshotValues(components, snapshot)
	require.NotNil(t, restored[0].Value)
	assert.Nil(t, components[0].Value)
}

func TestSnapshotComponents(t *testing.T) {
	components := []models.CompositionComponent{
		{ID: "c1", Name: "Prova", MaxValue: 5, RequiredRubricCount: 2, RubricIDs: pq.StringArray{"r1", "r2"}},
		{ID: "c2", Name: "Trabalho", MaxValue: 5, RequiredRubricCount: 1, RubricIDs: pq.StringArray{"r3"}},
	}
	breakdowns := []models.ComponentBreakdown{
		{ComponentID: "c1", Value: floatPtr(4.0)},
		{ComponentID: "c2", Value: nil},
	}

	snapshot := SnapshotComponents(components, breakdowns)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Prova", snapshot[0].Name)
	assert.Equal(t, []string{"r1", "r2"}, snapshot[0].RubricIDs)
	require.NotNil(t, snapshot[0].Value)
	assert.InDelta(t, 4.0, *snapshot[0].Value, 0.0001)
	assert.Nil(t, snapshot[1].Value)
}

func TestSnapshotRoundTrip(t *testing.T) {
	components := []models.CompositionComponent{
		{ID: "c1", Name: "Prova", MaxValue: 5, RequiredRubricCount: 1, RubricIDs: pq.StringArray{"r1"}},
	}
	breakdowns := []models.ComponentBreakdown{{ComponentID: "c1", Value: floatPtr(5.0)}}

	snapshot := SnapshotComponents(components, breakdowns)
	restored := RestoreSnapshotValues(components, snapshot)
	require.NotNil(t, restored[0].Value)
	assert.InDelta(t, 5.0, *restored[0].Value, 0.0001)
}
