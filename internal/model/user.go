package model

import (
	"errors"
	"time"
)

// Theme modes a user can pick during onboarding or in settings.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// ValidTheme reports if mode is one of the supported theme modes.
func ValidTheme(mode string) bool {
	return mode == ThemeLight || mode == ThemeDark || mode == ThemeSystem
}

// User is the single logical user of this device. It is owned exclusively by
// the store and mutated only through whole-record saves.
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	Username            string    `json:"username"`
	DOB                 string    `json:"dob"` // YYYY-MM-DD
	AvatarURL           string    `json:"avatar_url"`
	Bio                 string    `json:"bio,omitempty"`
	Theme               string    `json:"theme"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	FollowersCount      int       `json:"followers_count"`
	FollowingCount      int       `json:"following_count"`
	CreatedAt           time.Time `json:"created_at"`
}

// PendingProfile reports whether the user still has to finish profile setup.
// Any of the three required fields missing counts as pending.
func (u *User) PendingProfile() bool {
	return u.Name == "" || u.Username == "" || u.DOB == ""
}

// MinAge is the minimum age (in years) required at signup.
const MinAge = 13

// ValidateDOB checks that dob parses, is not in the future, and that the
// resulting age is at least MinAge at the reference time.
func ValidateDOB(dob string, now time.Time) error {
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return ErrInvalidDOB
	}
	if birth.After(now) {
		return ErrDOBInFuture
	}
	age := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		age--
	}
	if age < MinAge {
		return ErrUnderage
	}
	return nil
}

// LoginRequest is the request body for creating the local user record.
type LoginRequest struct {
	Email string `json:"email"`
}

// ProfileSetupRequest is the request body for the profile onboarding step.
type ProfileSetupRequest struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	DOB       string `json:"dob"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// ThemeRequest is the request body for the theme onboarding step and the
// settings theme switch.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// UpdateProfileRequest is the request body for settings edits after
// onboarding. Username changes go through the registry sync path.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Username  *string `json:"username"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
	Theme     *string `json:"theme"`
}

var (
	// ErrUserNotFound is returned when no user record exists on this device.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when another user id owns the username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUsernameFormat is returned when a username fails the format rule.
	ErrUsernameFormat = errors.New("username must be 3-20 chars: a-z, 0-9, _ only")

	// ErrMissingFields is returned when a required profile field is empty.
	ErrMissingFields = errors.New("name, username and date of birth are required")

	ErrInvalidDOB  = errors.New("invalid date of birth")
	ErrDOBInFuture = errors.New("date of birth cannot be in the future")
	ErrUnderage    = errors.New("must be at least 13 years old")

	// ErrInvalidTheme is returned for an unknown theme mode.
	ErrInvalidTheme = errors.New("invalid theme mode")
)
