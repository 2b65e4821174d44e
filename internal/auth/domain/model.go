package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// AcademicLevel is the self-declared seniority of a researcher.
type AcademicLevel string

const (
	LevelUndergraduate AcademicLevel = "undergraduate"
	LevelGraduate      AcademicLevel = "graduate"
	LevelPhD           AcademicLevel = "phd"
	LevelProfessor     AcademicLevel = "professor"
	LevelResearcher    AcademicLevel = "researcher"
)

// Valid reports whether l is one of the known academic levels.
func (l AcademicLevel) Valid() bool {
	switch l {
	case LevelUndergraduate, LevelGraduate, LevelPhD, LevelProfessor, LevelResearcher:
		return true
	}
	return false
}

// UserProfile is the profile row of an authenticated user.
// The ID is shared with the credential record of the auth provider.
type UserProfile struct {
	ID                string         `json:"id" db:"id"`
	Email             string         `json:"email" db:"email"`
	Name              *string        `json:"name,omitempty" db:"name"`
	AcademicLevel     *AcademicLevel `json:"academic_level,omitempty" db:"academic_level"`
	ResearchInterests []string       `json:"research_interests,omitempty" db:"research_interests"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy of p.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Name != nil {
		name := *p.Name
		cp.Name = &name
	}
	if p.AcademicLevel != nil {
		level := *p.AcademicLevel
		cp.AcademicLevel = &level
	}
	if p.ResearchInterests != nil {
		cp.ResearchInterests = append([]string(nil), p.ResearchInterests...)
	}
	return &cp
}

// AuthUser is the identity attached to a session by the auth provider.
type AuthUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Session is the credential bundle returned by the auth provider.
// Callers only look at whether one is present.
type Session struct {
	User  AuthUser      `json:"user"`
	Token *oauth2.Token `json:"token,omitempty"`
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Token != nil {
		tok := *s.Token
		cp.Token = &tok
	}
	return &cp
}

// FallbackProfile synthesizes a minimal profile from the session identity.
// It is used when no profile row exists yet and is never written back.
func FallbackProfile(u AuthUser) *UserProfile {
	updated := u.UpdatedAt
	if updated.IsZero() {
		updated = u.CreatedAt
	}
	return &UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: updated,
	}
}

// Credentials are the email/password pair used for sign in.
type Credentials struct {
	Email    string
	Password string
}

// SignUpRequest carries registration data for a new account.
type SignUpRequest struct {
	Email             string
	Password          string
	Name              string
	AcademicLevel     AcademicLevel
	ResearchInterests []string
}

// NewProfile is the row inserted into profiles after registration.
type NewProfile struct {
	ID                string
	Email             string
	Name              *string
	AcademicLevel     *AcademicLevel
	ResearchInterests []string
}

// ProfileUpdate is a partial profile update. Nil fields are left untouched.
type ProfileUpdate struct {
	Name              *string        `json:"name,omitempty"`
	AcademicLevel     *AcademicLevel `json:"academic_level,omitempty"`
	ResearchInterests *[]string      `json:"research_interests,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.AcademicLevel == nil && u.ResearchInterests == nil
}

// AuthEventType names a session change published by the auth provider.
type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
)

// AuthEvent is a session change notification.
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	Session *Session      `json:"session,omitempty"`
	At      time.Time     `json:"at"`
}
