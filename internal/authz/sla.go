package authz

import "time"

// Priority ranks the urgency of a time-bound workflow item.
type Priority string

// Priorities in ascending order of urgency.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists the known priority levels from least to most urgent.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// KnownPriority reports whether p is a recognised priority level.
func KnownPriority(p Priority) bool {
	for _, known := range Priorities() {
		if known == p {
			return true
		}
	}
	return false
}

// DefaultSLAHours is the response window applied when no (role, priority)
// entry is configured. SLA computation must never block a workflow, so a
// lookup miss degrades to this generous default instead of erroring.
const DefaultSLAHours = 72 * time.Hour

type slaKey struct {
	role     Role
	priority Priority
}

// SLAPolicy maps (role, priority) to a maximum response time.
type SLAPolicy struct {
	hours       map[slaKey]time.Duration
	defaultResp time.Duration
}

// SLAEntry configures one (role, priority) response window.
type SLAEntry struct {
	Role     Role
	Priority Priority
	Response time.Duration
}

// NewSLAPolicy builds an SLAPolicy from entries. A non-positive fallback
// selects DefaultSLAHours.
func NewSLAPolicy(entries []SLAEntry, fallback time.Duration) *SLAPolicy {
	if fallback <= 0 {
		fallback = DefaultSLAHours
	}
	p := &SLAPolicy{
		hours:       make(map[slaKey]time.Duration, len(entries)),
		defaultResp: fallback,
	}
	for _, e := range entries {
		p.hours[slaKey{role: e.Role, priority: e.Priority}] = e.Response
	}
	return p
}

// HoursFor returns the response window for (role, priority), falling back to
// the configured default on a miss.
func (p *SLAPolicy) HoursFor(role Role, priority Priority) time.Duration {
	if d, ok := p.hours[slaKey{role: role, priority: priority}]; ok {
		return d
	}
	return p.defaultResp
}

// Default returns the fallback response window.
func (p *SLAPolicy) Default() time.Duration {
	return p.defaultResp
}

// Deadline computes the response deadline for work started at start.
func (p *SLAPolicy) Deadline(start time.Time, role Role, priority Priority) time.Time {
	return start.Add(p.HoursFor(role, priority))
}

// DefaultSLAPolicy returns the production Parkside SLA table.
func DefaultSLAPolicy() *SLAPolicy {
	return NewSLAPolicy([]SLAEntry{
		{Role: RolePropertyManager, Priority: PriorityCritical, Response: 4 * time.Hour},
		{Role: RolePropertyManager, Priority: PriorityHigh, Response: 12 * time.Hour},
		{Role: RolePropertyManager, Priority: PriorityMedium, Response: 24 * time.Hour},
		{Role: RolePropertyManager, Priority: PriorityLow, Response: 48 * time.Hour},

		{Role: RoleSupportAgent, Priority: PriorityCritical, Response: 2 * time.Hour},
		{Role: RoleSupportAgent, Priority: PriorityHigh, Response: 8 * time.Hour},
		{Role: RoleSupportAgent, Priority: PriorityMedium, Response: 24 * time.Hour},
		{Role: RoleSupportAgent, Priority: PriorityLow, Response: 48 * time.Hour},

		{Role: RoleOwner, Priority: PriorityCritical, Response: 12 * time.Hour},
		{Role: RoleOwner, Priority: PriorityHigh, Response: 24 * time.Hour},
		{Role: RoleOwner, Priority: PriorityMedium, Response: 48 * time.Hour},
		{Role: RoleOwner, Priority: PriorityLow, Response: 72 * time.Hour},
	}, DefaultSLAHours)
}
