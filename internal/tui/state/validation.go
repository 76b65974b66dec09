package state

import (
	"fmt"

	"github.com/julianstephens/tally/internal/validation"
)

// UpdateValidationStatus runs validation and updates the warning message
func (m *Model) UpdateValidationStatus() {
	habits, err := m.Store.GetAllHabits(true, true)
	if err != nil {
		m.ValidationWarning = "⚠ Validation unavailable"
		m.ValidationConflicts = nil
		return
	}
	entries, err := m.Store.GetAllProgressEntries()
	if err != nil {
		m.ValidationWarning = "⚠ Validation unavailable"
		m.ValidationConflicts = nil
		return
	}

	validator := validation.New()
	result := validator.ValidateHabits(habits)
	result.Conflicts = append(result.Conflicts, validator.ValidateEntries(habits, entries).Conflicts...)
	m.ValidationConflicts = result.Conflicts

	if len(result.Conflicts) > 0 {
		m.ValidationWarning = fmt.Sprintf("⚠ %d validation warning(s), run 'tally doctor'", len(result.Conflicts))
	} else {
		m.ValidationWarning = ""
	}
}
