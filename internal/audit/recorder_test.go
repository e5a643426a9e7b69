package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evora-events/backend/internal/models"
)

type sinkSpy struct {
	entries []*models.AuditEntry
	err     error
}

func (s *sinkSpy) Append(_ context.Context, e *models.AuditEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestRecordAppendsEntryWithDetails(t *testing.T) {
	sink := &sinkSpy{}
	rec := NewRecorder(sink, nil)

	wsID := uuid.New()
	userID := uuid.New()
	rec.Record(context.Background(), wsID, &userID, models.AuditWindDownInitiated, "workspace", &wsID, map[string]any{
		"reason": models.ReasonEventCompleted,
	})

	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	assert.Equal(t, wsID, e.WorkspaceID)
	assert.Equal(t, models.AuditWindDownInitiated, e.Action)

	var details map[string]string
	require.NoError(t, json.Unmarshal(e.Details, &details))
	assert.Equal(t, models.ReasonEventCompleted, details["reason"])
}

func TestRecordSwallowsSinkFailure(t *testing.T) {
	sink := &sinkSpy{err: errors.New("connection reset")}
	rec := NewRecorder(sink, nil)

	wsID := uuid.New()
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), wsID, nil, models.AuditWorkspaceDissolved, "workspace", &wsID, nil)
	})
	assert.Empty(t, sink.entries)
}
