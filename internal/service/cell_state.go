package service

import "github.com/escolalink/escola-api/internal/models"

// RestoreSnapshotValues re-attaches previously computed component values to
// the current template shape by matching component name. The binding is
// deliberately soft: templates can be edited after grades were saved under an
// older shape, and a name match is the informal migration policy between the
// two. Components without a matching snapshot entry keep a nil value.
func RestoreSnapshotValues(components []models.CompositionComponent, snapshot models.SnapshotList) []models.CompositionComponent {
	byName := make(map[string]models.ComponentSnapshot, len(snapshot))
	for _, entry := range snapshot {
		byName[entry.Name] = entry
	}

	restored := make([]models.CompositionComponent, len(components))
	for i, component := range components {
		restored[i] = component
		restored[i].Value = nil
		if entry, ok := byName[component.Name]; ok && entry.Value != nil {
			value := *entry.Value
			restored[i].Value = &value
		}
	}
	return restored
}

// SnapshotComponents captures the denormalized copy persisted with a
// composition-mode grade.
func SnapshotComponents(components []models.CompositionComponent, breakdowns []models.ComponentBreakdown) models.SnapshotList {
	values := make(map[string]*float64, len(breakdowns))
	for _, breakdown := range breakdowns {
		values[breakdown.ComponentID] = breakdown.Value
	}

	snapshot := make(models.SnapshotList, 0, len(components))
	for _, component := range components {
		entry := models.ComponentSnapshot{
			Name:                component.Name,
			MaxValue:            component.MaxValue,
			RequiredRubricCount: component.RequiredRubricCount,
			RubricIDs:           append([]string{}, component.RubricIDs...),
		}
		if value, ok := values[component.ID]; ok && value != nil {
			v := *value
			entry.Value = &v
		}
		snapshot = append(snapshot, entry)
	}
	return snapshot
}
