package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplySettingsUpdatePreservesSiblings(t *testing.T) {
	s := DefaultWorkspaceSettings()

	days := 7
	got := ApplySettingsUpdate(s, SettingsUpdate{RetentionPeriodDays: &days})
	assert.Equal(t, 7, got.RetentionPeriodDays)
	assert.Equal(t, s.DefaultChannels, got.DefaultChannels)
	assert.Equal(t, s.TaskCategories, got.TaskCategories)
	assert.False(t, got.AllowExternalMembers)

	external := true
	got = ApplySettingsUpdate(got, SettingsUpdate{AllowExternalMembers: &external})
	assert.Equal(t, 7, got.RetentionPeriodDays)
	assert.True(t, got.AllowExternalMembers)
}

func TestApplySettingsUpdateClampsNegativeRetention(t *testing.T) {
	days := -5
	got := ApplySettingsUpdate(DefaultWorkspaceSettings(), SettingsUpdate{RetentionPeriodDays: &days})
	assert.Equal(t, 0, got.RetentionPeriodDays)
}

func TestApplySettingsUpdateEmptyIsNoop(t *testing.T) {
	s := DefaultWorkspaceSettings()
	assert.Equal(t, s, ApplySettingsUpdate(s, SettingsUpdate{}))
}
