package workspaces

import "github.com/evora-events/backend/internal/models"

// transitions is the authoritative allowed-transition table. DISSOLVED is
// terminal. WINDING_DOWN -> ACTIVE is the reactivation path, and
// PROVISIONING -> DISSOLVED covers an event cancelled mid-provision.
var transitions = map[models.WorkspaceStatus][]models.WorkspaceStatus{
	models.WorkspaceProvisioning: {models.WorkspaceActive, models.WorkspaceDissolved},
	models.WorkspaceActive:       {models.WorkspaceWindingDown, models.WorkspaceDissolved},
	models.WorkspaceWindingDown:  {models.WorkspaceDissolved, models.WorkspaceActive},
	models.WorkspaceDissolved:    {},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to models.WorkspaceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given status.
// The returned slice is a copy.
func NextStatuses(from models.WorkspaceStatus) []models.WorkspaceStatus {
	next := transitions[from]
	out := make([]models.WorkspaceStatus, len(next))
	copy(out, next)
	return out
}
