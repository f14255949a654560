package specification

import "time"

// TimeProvider is an interface that provides a Now method to get the current time.
type TimeProvider interface {
	Now() time.Time
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time { return time.Now().UTC() }

// Timeline tracks when a specification was created and last changed.
type Timeline struct {
	createdAt    time.Time
	updatedAt    time.Time
	timeProvider TimeProvider
}

// NewTimeline creates a new Timeline starting now.
func NewTimeline(timeProvider TimeProvider) *Timeline {
	if timeProvider == nil {
		timeProvider = realTimeProvider{}
	}
	now := timeProvider.Now()
	return &Timeline{
		createdAt:    now,
		updatedAt:    now,
		timeProvider: timeProvider,
	}
}

// ReconstructTimeline rebuilds a Timeline from stored values.
func ReconstructTimeline(createdAt, updatedAt time.Time, timeProvider TimeProvider) *Timeline {
	if timeProvider == nil {
		timeProvider = realTimeProvider{}
	}
	return &Timeline{
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		timeProvider: timeProvider,
	}
}

// CreatedAt returns when the specification was created.
func (t *Timeline) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the specification last changed.
func (t *Timeline) UpdatedAt() time.Time { return t.updatedAt }

// Touch records a modification.
func (t *Timeline) Touch() { t.updatedAt = t.timeProvider.Now() }
