package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/shared/perfex"
)

func TestMapPerfexStatus(t *testing.T) {
	assert.Equal(t, entity.ProjectStatusCompleted, mapPerfexStatus(perfex.ProjectStatusFinished))
	assert.Equal(t, entity.ProjectStatusOnHold, mapPerfexStatus(perfex.ProjectStatusOnHold))
	assert.Equal(t, entity.ProjectStatusCancelled, mapPerfexStatus(perfex.ProjectStatusCancelled))
	// 未开始/进行中以及未知状态码都落到active
	assert.Equal(t, entity.ProjectStatusActive, mapPerfexStatus(perfex.ProjectStatusNotStarted))
	assert.Equal(t, entity.ProjectStatusActive, mapPerfexStatus(perfex.ProjectStatusInProgress))
	assert.Equal(t, entity.ProjectStatusActive, mapPerfexStatus("99"))
}

func TestMapLocalStatus(t *testing.T) {
	assert.Equal(t, perfex.ProjectStatusFinished, mapLocalStatus(entity.ProjectStatusCompleted))
	assert.Equal(t, perfex.ProjectStatusOnHold, mapLocalStatus(entity.ProjectStatusOnHold))
	assert.Equal(t, perfex.ProjectStatusCancelled, mapLocalStatus(entity.ProjectStatusCancelled))
	assert.Equal(t, perfex.ProjectStatusInProgress, mapLocalStatus(entity.ProjectStatusActive))
}

func TestMapStatusRoundTrip(t *testing.T) {
	for _, status := range []string{
		entity.ProjectStatusActive,
		entity.ProjectStatusOnHold,
		entity.ProjectStatusCompleted,
		entity.ProjectStatusCancelled,
	} {
		assert.Equal(t, status, mapPerfexStatus(mapLocalStatus(status)), "status %s", status)
	}
}

func TestParsePerfexDate(t *testing.T) {
	d := parsePerfexDate("2026-03-15")
	if assert.NotNil(t, d) {
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *d)
	}

	assert.Nil(t, parsePerfexDate(""))
	assert.Nil(t, parsePerfexDate("0000-00-00"))
	assert.Nil(t, parsePerfexDate("15/03/2026"))
}
