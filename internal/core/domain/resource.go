package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format the service uses for calendar dates.
const DateLayout = "2006-01-02"

// TournamentType classifies who competes in a tournament.
type TournamentType string

const (
	TournamentIndividual TournamentType = "individual"
	TournamentInterClub  TournamentType = "inter_club"
	TournamentBoth       TournamentType = "both"
)

// TournamentStatus is the lifecycle state of a tournament.
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament is a golf tournament.
type Tournament struct {
	ID             int64            `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string           `json:"name" yaml:"name"`
	Description    string           `json:"description,omitempty" yaml:"description,omitempty"`
	StartDate      string           `json:"start_date" yaml:"start_date"`
	EndDate        string           `json:"end_date" yaml:"end_date"`
	Venue          string           `json:"venue" yaml:"venue"`
	TournamentType TournamentType   `json:"tournament_type" yaml:"tournament_type"`
	Status         TournamentStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// Validate checks the fields the service requires.
func (t *Tournament) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrValidation.WithDetails("name is required")
	}
	if strings.TrimSpace(t.Venue) == "" {
		return ErrValidation.WithDetails("venue is required")
	}

	start, err := parseDate("start_date", t.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", t.EndDate)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return ErrValidation.WithDetails("end_date must not be before start_date")
	}

	switch t.TournamentType {
	case TournamentIndividual, TournamentInterClub, TournamentBoth:
	default:
		return ErrValidation.WithDetails(fmt.Sprintf("unknown tournament_type %q", t.TournamentType))
	}

	switch t.Status {
	case "", TournamentDraft, TournamentActive, TournamentCompleted:
	default:
		return ErrValidation.WithDetails(fmt.Sprintf("unknown status %q", t.Status))
	}
	return nil
}

// Club is a golf club.
type Club struct {
	ID       int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name" yaml:"name"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Validate checks the fields the service requires.
func (c *Club) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrValidation.WithDetails("name is required")
	}
	return nil
}

// Golfer is a club member.
type Golfer struct {
	ID        int64   `json:"id,omitempty" yaml:"id,omitempty"`
	FirstName string  `json:"first_name" yaml:"first_name"`
	LastName  string  `json:"last_name" yaml:"last_name"`
	Club      int64   `json:"club" yaml:"club"`
	Handicap  float64 `json:"handicap" yaml:"handicap"`
}

// Validate checks the fields the service requires.
func (g *Golfer) Validate() error {
	if strings.TrimSpace(g.FirstName) == "" || strings.TrimSpace(g.LastName) == "" {
		return ErrValidation.WithDetails("first_name and last_name are required")
	}
	if g.Club <= 0 {
		return ErrValidation.WithDetails("club is required")
	}
	return validateHandicap(g.Handicap)
}

// User is a staff account.
type User struct {
	ID        int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	FirstName string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Password  string `json:"password,omitempty" yaml:"-"`
}

// Validate checks a registration request.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrValidation.WithDetails("username is required")
	}
	if u.Password == "" {
		return ErrValidation.WithDetails("password is required")
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return ErrValidation.WithDetails("email is invalid")
	}
	return nil
}

// Participant is an entrant in a tournament.
type Participant struct {
	ID                int64    `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string   `json:"name" yaml:"name"`
	Email             string   `json:"email,omitempty" yaml:"email,omitempty"`
	Phone             string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Handicap          *float64 `json:"handicap,omitempty" yaml:"handicap,omitempty"`
	IsClubParticipant bool     `json:"is_club_participant" yaml:"is_club_participant"`
}

// Validate checks the fields the service requires.
func (p *Participant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrValidation.WithDetails("name is required")
	}
	if len(p.Phone) > 20 {
		return ErrValidation.WithDetails("phone is longer than 20 characters")
	}
	if p.Handicap != nil {
		return validateHandicap(*p.Handicap)
	}
	return nil
}

// TournamentResult is one round score of a participant.
type TournamentResult struct {
	ID          int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Participant int64  `json:"participant" yaml:"participant"`
	RoundNumber int    `json:"round_number" yaml:"round_number"`
	Score       int    `json:"score" yaml:"score"`
	DatePlayed  string `json:"date_played" yaml:"date_played"`
}

// Validate checks the fields the service requires.
func (r *TournamentResult) Validate() error {
	if r.Participant <= 0 {
		return ErrValidation.WithDetails("participant is required")
	}
	if r.RoundNumber < 1 {
		return ErrValidation.WithDetails("round_number must be at least 1")
	}
	if r.Score < 1 {
		return ErrValidation.WithDetails("score must be at least 1")
	}
	_, err := parseDate("date_played", r.DatePlayed)
	return err
}

// TournamentPoints maps a finishing position to awarded points.
type TournamentPoints struct {
	ID       int64 `json:"id,omitempty" yaml:"id,omitempty"`
	Position int   `json:"position" yaml:"position"`
	Points   int   `json:"points" yaml:"points"`
}

// Validate checks the fields the service requires.
func (p *TournamentPoints) Validate() error {
	if p.Position < 1 {
		return ErrValidation.WithDetails("position must be at least 1")
	}
	if p.Points < 0 {
		return ErrValidation.WithDetails("points must not be negative")
	}
	return nil
}

// Standing is one computed row of a tournament leaderboard.
type Standing struct {
	Participant  string  `json:"participant" yaml:"participant"`
	TotalScore   int     `json:"total_score" yaml:"total_score"`
	RoundsPlayed int     `json:"rounds_played" yaml:"rounds_played"`
	AverageScore float64 `json:"average_score" yaml:"average_score"`
	Position     int     `json:"position" yaml:"position"`
	Points       int     `json:"points" yaml:"points"`
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, ErrValidation.WithDetails(field + " is required")
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ErrValidation.WithDetails(fmt.Sprintf("%s must be YYYY-MM-DD", field)).WithCause(err)
	}
	return t, nil
}

// validateHandicap enforces the service's decimal(4,1) column.
func validateHandicap(h float64) error {
	if h < -10 || h > 54 {
		return ErrValidation.WithDetails(fmt.Sprintf("handicap %.1f out of range", h))
	}
	return nil
}
