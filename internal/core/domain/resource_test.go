package domain

import (
	"errors"
	"testing"
)

func validTournament() Tournament {
	return Tournament{
		Name:           "Club Championship",
		StartDate:      "2026-05-01",
		EndDate:        "2026-05-03",
		Venue:          "Old Course",
		TournamentType: TournamentIndividual,
		Status:         TournamentDraft,
	}
}

func TestTournament_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Tournament)
		wantErr bool
	}{
		{"valid", func(*Tournament) {}, false},
		{"missing name", func(t *Tournament) { t.Name = " " }, true},
		{"missing venue", func(t *Tournament) { t.Venue = "" }, true},
		{"bad date", func(t *Tournament) { t.StartDate = "05/01/2026" }, true},
		{"end before start", func(t *Tournament) { t.EndDate = "2026-04-30" }, true},
		{"bad type", func(t *Tournament) { t.TournamentType = "team" }, true},
		{"inter club", func(t *Tournament) { t.TournamentType = TournamentInterClub }, false},
		{"empty status", func(t *Tournament) { t.Status = "" }, false},
		{"bad status", func(t *Tournament) { t.Status = "cancelled" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := validTournament()
			tt.mutate(&tour)
			err := tour.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("error %v is not ErrValidation", err)
			}
		})
	}
}

func TestNestedRecords_Validate(t *testing.T) {
	hcp := 60.0
	tests := []struct {
		name    string
		v       interface{ Validate() error }
		wantErr bool
	}{
		{"result ok", &TournamentResult{Participant: 1, RoundNumber: 1, Score: 72, DatePlayed: "2026-05-01"}, false},
		{"result round 0", &TournamentResult{Participant: 1, RoundNumber: 0, Score: 72, DatePlayed: "2026-05-01"}, true},
		{"result score 0", &TournamentResult{Participant: 1, RoundNumber: 1, Score: 0, DatePlayed: "2026-05-01"}, true},
		{"result no participant", &TournamentResult{RoundNumber: 1, Score: 70, DatePlayed: "2026-05-01"}, true},
		{"points ok", &TournamentPoints{Position: 1, Points: 0}, false},
		{"points position 0", &TournamentPoints{Position: 0, Points: 10}, true},
		{"points negative", &TournamentPoints{Position: 2, Points: -1}, true},
		{"participant ok", &Participant{Name: "Ann"}, false},
		{"participant handicap", &Participant{Name: "Ann", Handicap: &hcp}, true},
		{"golfer ok", &Golfer{FirstName: "A", LastName: "B", Club: 3, Handicap: 12.4}, false},
		{"golfer no club", &Golfer{FirstName: "A", LastName: "B"}, true},
		{"club ok", &Club{Name: "Royal"}, false},
		{"club empty", &Club{}, true},
		{"user ok", &User{Username: "u", Password: "p"}, false},
		{"user bad email", &User{Username: "u", Password: "p", Email: "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
