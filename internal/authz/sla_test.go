package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSLAHoursForConfiguredEntry(t *testing.T) {
	sla := DefaultSLAPolicy()

	assert.Equal(t, 4*time.Hour, sla.HoursFor(RolePropertyManager, PriorityCritical))
	assert.Equal(t, 2*time.Hour, sla.HoursFor(RoleSupportAgent, PriorityCritical))
	assert.Equal(t, 72*time.Hour, sla.HoursFor(RoleOwner, PriorityLow))
}

func TestSLAMissFallsBackToDefault(t *testing.T) {
	sla := DefaultSLAPolicy()

	// finance-manager has no SLA entries at all
	assert.Equal(t, DefaultSLAHours, sla.HoursFor(RoleFinanceManager, PriorityCritical))
	// unknown role, same fallback
	assert.Equal(t, DefaultSLAHours, sla.HoursFor(Role("ghost"), PriorityHigh))
}

func TestSLADeadline(t *testing.T) {
	sla := DefaultSLAPolicy()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	deadline := sla.Deadline(start, RoleSupportAgent, PriorityHigh)
	assert.Equal(t, start.Add(8*time.Hour), deadline)
}

func TestSLACustomFallback(t *testing.T) {
	sla := NewSLAPolicy(nil, 24*time.Hour)
	assert.Equal(t, 24*time.Hour, sla.HoursFor(RoleOwner, PriorityLow))

	sla = NewSLAPolicy(nil, 0)
	assert.Equal(t, DefaultSLAHours, sla.Default())
}

func TestKnownPriority(t *testing.T) {
	for _, p := range Priorities() {
		assert.True(t, KnownPriority(p))
	}
	assert.False(t, KnownPriority(Priority("urgent")))
	assert.False(t, KnownPriority(Priority("")))
}
