package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mulligan-golf/mulligan-go/internal/client"
	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/internal/core/querycache"
)

// TournamentCommand returns the tournament subcommand group.
func TournamentCommand() *cli.Command {
	subs := tournaments.subcommands()
	subs = append(subs,
		&cli.Command{
			Name:      "standings",
			Usage:     "Show the leaderboard of a tournament",
			ArgsUsage: "ID",
			Action:    tournamentStandings,
		},
		&cli.Command{
			Name:      "pdf",
			Usage:     "Download the leaderboard of a tournament as PDF",
			ArgsUsage: "ID",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"O"},
					Usage:   "Output file (default tournament-<ID>-standings.pdf, - for stdout)",
				},
			},
			Action: tournamentPDF,
		},
	)
	return &cli.Command{
		Name:        "tournament",
		Aliases:     []string{"t"},
		Usage:       "Manage tournaments",
		Subcommands: subs,
	}
}

func tournamentStandings(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, 0, "tournament")
	if err != nil {
		return err
	}

	data, err := rt.read(c.Context, standingsKey(id), func(ctx context.Context) (any, error) {
		return rt.Client.Standings(ctx, id)
	})
	if err != nil {
		return err
	}
	page := data.(*client.Page)
	rows, err := client.Decode[domain.Standing](page)
	if err != nil {
		// Unknown row shape; show it as the server sent it.
		return renderPage(c, page, "standings")
	}
	if len(rows) == 0 {
		notice(c, "No standings yet.")
		if isTable(c) {
			return nil
		}
	}
	return render(c, rows)
}

func tournamentPDF(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, 0, "tournament")
	if err != nil {
		return err
	}

	path := c.String("out")
	if path == "-" {
		return rt.Client.StandingsPDF(c.Context, id, c.App.Writer)
	}
	if path == "" {
		path = fmt.Sprintf("tournament-%d-standings.pdf", id)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := rt.Client.StandingsPDF(c.Context, id, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "Saved %s.\n", path)
	return nil
}

// ParticipantCommand returns the participant subcommand group.
func ParticipantCommand() *cli.Command {
	return &cli.Command{
		Name:        "participant",
		Aliases:     []string{"p"},
		Usage:       "Manage the entrants of a tournament",
		Subcommands: participants.subcommands(),
	}
}

// ResultCommand returns the result subcommand group.
func ResultCommand() *cli.Command {
	return &cli.Command{
		Name:        "result",
		Aliases:     []string{"r"},
		Usage:       "Manage round scores of a tournament",
		Subcommands: results.subcommands(),
	}
}

// PointsCommand returns the points subcommand group.
func PointsCommand() *cli.Command {
	return &cli.Command{
		Name:        "points",
		Usage:       "Manage the points table of a tournament",
		Subcommands: points.subcommands(),
	}
}

// ClubCommand returns the club subcommand group.
func ClubCommand() *cli.Command {
	return &cli.Command{
		Name:        "club",
		Usage:       "Manage golf clubs",
		Subcommands: clubs.subcommands(),
	}
}

// GolferCommand returns the golfer subcommand group.
func GolferCommand() *cli.Command {
	return &cli.Command{
		Name:        "golfer",
		Aliases:     []string{"g"},
		Usage:       "Manage club golfers",
		Subcommands: golfers.subcommands(),
	}
}

var keyUsers = querycache.K("users")

// UserCommand returns the user subcommand group.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage staff accounts",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List staff accounts",
				Action:  userList,
			},
			{
				Name:  "register",
				Usage: "Create a staff account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
					&cli.StringFlag{Name: "email", Usage: "Email address"},
					&cli.StringFlag{Name: "first-name", Usage: "First name"},
					&cli.StringFlag{Name: "last-name", Usage: "Last name"},
				},
				Action: userRegister,
			},
		},
	}
}

func userList(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	data, err := rt.read(c.Context, keyUsers, func(ctx context.Context) (any, error) {
		return rt.Client.Users().List(ctx, nil)
	})
	if err != nil {
		return err
	}
	return renderPage(c, data.(*client.Page), "users")
}

func userRegister(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}

	u := &domain.User{
		Username:  c.String("username"),
		Password:  c.String("password"),
		Email:     c.String("email"),
		FirstName: c.String("first-name"),
		LastName:  c.String("last-name"),
	}
	if u.Password == "" {
		if u.Password, err = prompt(c, bufio.NewReader(c.App.Reader), "Password: "); err != nil {
			return err
		}
	}

	out, err := rt.mutate(c.Context, func(ctx context.Context) (any, error) {
		return rt.Client.Users().Register(ctx, u)
	}, keyUsers)
	if err != nil {
		return err
	}
	notice(c, "Registered %s.", u.Username)
	return renderRaw(c, out.(json.RawMessage))
}
