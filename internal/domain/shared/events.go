// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each one is delivered to the notification sink.
const (
	EventPointsAwarded       EventType = "progress.points"
	EventBadgeUnlocked       EventType = "progress.badge"
	EventAchievementUnlocked EventType = "progress.achievement"
	EventLevelUp             EventType = "progress.level_up"
	EventStreakUpdated       EventType = "progress.streak_updated"
)

// NotificationKind returns the short kind used by notification consumers:
// "badge", "achievement" or "points".
func (t EventType) NotificationKind() string {
	switch t {
	case EventBadgeUnlocked:
		return "badge"
	case EventAchievementUnlocked:
		return "achievement"
	case EventPointsAwarded, EventLevelUp:
		return "points"
	case EventStreakUpdated:
		return "streak"
	default:
		return string(t)
	}
}

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int64     `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event. Version is the snapshot version
// that produced the event.
func NewBaseEvent(eventType EventType, userID string, version int64, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: userID,
		Version:     version,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAwardedEvent is emitted when points are added to a user's total.
type PointsAwardedEvent struct {
	BaseEvent
	Points    int    `json:"points"`
	Reason    string `json:"reason"`
	NewTotal  int    `json:"new_total"`
	LeveledUp bool   `json:"leveled_up"`
	NewLevel  int    `json:"new_level"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"points":    e.Points,
		"reason":    e.Reason,
		"newTotal":  e.NewTotal,
		"leveledUp": e.LeveledUp,
		"newLevel":  e.NewLevel,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(base BaseEvent, points int, reason string, newTotal int, leveledUp bool, newLevel int) PointsAwardedEvent {
	base.Type = EventPointsAwarded
	return PointsAwardedEvent{
		BaseEvent: base,
		Points:    points,
		Reason:    reason,
		NewTotal:  newTotal,
		LeveledUp: leveledUp,
		NewLevel:  newLevel,
	}
}

// BadgeUnlockedEvent is emitted once per badge, the first time it is unlocked.
type BadgeUnlockedEvent struct {
	BaseEvent
	BadgeID  string `json:"badge_id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Rarity   string `json:"rarity"`
	Points   int    `json:"points"`
	NewLevel int    `json:"new_level"`
}

// Payload implements Event interface.
func (e BadgeUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badgeId":  e.BadgeID,
		"name":     e.Name,
		"icon":     e.Icon,
		"rarity":   e.Rarity,
		"points":   e.Points,
		"newLevel": e.NewLevel,
	}
}

// NewBadgeUnlockedEvent creates a new BadgeUnlockedEvent.
func NewBadgeUnlockedEvent(base BaseEvent, badgeID, name, icon, rarity string, points, newLevel int) BadgeUnlockedEvent {
	base.Type = EventBadgeUnlocked
	return BadgeUnlockedEvent{
		BaseEvent: base,
		BadgeID:   badgeID,
		Name:      name,
		Icon:      icon,
		Rarity:    rarity,
		Points:    points,
		NewLevel:  newLevel,
	}
}

// AchievementUnlockedEvent is emitted when an achievement condition is first met.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	BadgeID       string `json:"badge_id"`
	BonusPoints   int    `json:"bonus_points"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievementId": e.AchievementID,
		"name":          e.Name,
		"badgeId":       e.BadgeID,
		"bonusPoints":   e.BonusPoints,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(base BaseEvent, achievementID, name, badgeID string, bonus int) AchievementUnlockedEvent {
	base.Type = EventAchievementUnlocked
	return AchievementUnlockedEvent{
		BaseEvent:     base,
		AchievementID: achievementID,
		Name:          name,
		BadgeID:       badgeID,
		BonusPoints:   bonus,
	}
}

// LevelUpEvent is emitted when a mutation other than a direct points award raises the level.
type LevelUpEvent struct {
	BaseEvent
	OldLevel    int `json:"old_level"`
	NewLevel    int `json:"new_level"`
	TotalPoints int `json:"total_points"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"oldLevel":    e.OldLevel,
		"newLevel":    e.NewLevel,
		"totalPoints": e.TotalPoints,
		"leveledUp":   true,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(base BaseEvent, oldLevel, newLevel, totalPoints int) LevelUpEvent {
	base.Type = EventLevelUp
	return LevelUpEvent{
		BaseEvent:   base,
		OldLevel:    oldLevel,
		NewLevel:    newLevel,
		TotalPoints: totalPoints,
	}
}

// StreakUpdatedEvent is emitted when a streak counter changes.
type StreakUpdatedEvent struct {
	BaseEvent
	Kind     string `json:"kind"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
	Broken   bool   `json:"broken"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"kind":     e.Kind,
		"previous": e.Previous,
		"current":  e.Current,
		"broken":   e.Broken,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(base BaseEvent, kind string, previous, current int) StreakUpdatedEvent {
	base.Type = EventStreakUpdated
	return StreakUpdatedEvent{
		BaseEvent: base,
		Kind:      kind,
		Previous:  previous,
		Current:   current,
		Broken:    previous > 0 && current == 1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	Kind          string          `json:"kind"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int64           `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event payload into an envelope.
func NewEventEnvelope(id string, event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}

	env := EventEnvelope{
		ID:          id,
		Type:        event.EventType(),
		Kind:        event.EventType().NotificationKind(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Payload:     payload,
	}
	if b, ok := event.(interface{ base() BaseEvent }); ok {
		env.Version = b.base().Version
		env.CorrelationID = b.base().CorrelationID
	}
	return env, nil
}

func (e BaseEvent) base() BaseEvent { return e }

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
