// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID is the opaque identifier supplied by the identity provider.
type UserID string

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return strings.TrimSpace(string(u)) == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if uid.IsEmpty() {
		return "", NewDomainError("shared", "NewUserID", ErrEmptyValue, "user ID cannot be empty")
	}
	if len(uid) > 128 {
		return "", NewDomainError("shared", "NewUserID", ErrValueOutOfRange, "user ID is too long")
	}
	return uid, nil
}

// BadgeID is the canonical identifier of a badge: upper snake case, e.g. FIRST_STEPS.
type BadgeID string

var badgeIDRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]*(_[A-Z0-9]+)*$`)

// IsCanonical reports whether the id is already in canonical form.
func (b BadgeID) IsCanonical() bool {
	return badgeIDRegex.MatchString(string(b))
}

// String returns the string representation.
func (b BadgeID) String() string {
	return string(b)
}

// NormalizeBadgeID maps external input to canonical form. It is applied once at
// the boundary; lookups never try alternative casings.
func NormalizeBadgeID(raw string) BadgeID {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return BadgeID(s)
}

// AchievementID identifies an achievement definition: lower snake case, e.g. first_assessment.
type AchievementID string

var achievementIDRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// IsCanonical reports whether the id is in canonical form.
func (a AchievementID) IsCanonical() bool {
	return achievementIDRegex.MatchString(string(a))
}

// String returns the string representation.
func (a AchievementID) String() string {
	return string(a)
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Points is a non-negative amount of progression points.
type Points int

// MaxPoints caps a single total to keep arithmetic far from overflow.
const MaxPoints Points = 1_000_000_000

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// Add adds a non-negative amount, saturating at MaxPoints.
func (p Points) Add(amount int) Points {
	if amount <= 0 {
		return p
	}
	if int(MaxPoints)-int(p) < amount {
		return MaxPoints
	}
	return p + Points(amount)
}

// NewPoints validates an award amount.
func NewPoints(amount int) (Points, error) {
	if amount < 0 {
		return 0, ErrNegativePoints
	}
	if amount > int(MaxPoints) {
		return MaxPoints, nil
	}
	return Points(amount), nil
}
