package command

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mulligan-golf/mulligan-go/internal/client"
	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/internal/core/querycache"
)

// resourceCommands builds the list/get/create/update/delete commands of one
// REST resource. Reads go through the query cache; every mutation
// invalidates the list key, plus the detail key for updates and deletes.
type resourceCommands[T any] struct {
	name   string // singular, used in messages
	plural string
	create string // name of the create subcommand
	nested bool   // resource lives under a tournament

	updatable bool

	endpoint func(rt *Runtime, parent int64) *client.Resource[T]
	listKey  func(parent int64) querycache.Key
	itemKey  func(parent, id int64) querycache.Key
	// dependents are invalidated together with the list key.
	dependents func(parent int64) []querycache.Key

	fields []cli.Flag
	apply  func(c *cli.Context, v *T) error
}

var tournamentFlag = &cli.Int64Flag{
	Name:     "tournament",
	Aliases:  []string{"t"},
	Usage:    "Tournament ID",
	Required: true,
}

var queryFlag = &cli.StringSliceFlag{
	Name:    "filter",
	Aliases: []string{"q"},
	Usage:   "Query parameter as KEY=VALUE (repeatable)",
}

func (r resourceCommands[T]) withParent(flags ...cli.Flag) []cli.Flag {
	if r.nested {
		return append([]cli.Flag{tournamentFlag}, flags...)
	}
	return flags
}

func (r resourceCommands[T]) parent(c *cli.Context) int64 {
	if !r.nested {
		return 0
	}
	return c.Int64("tournament")
}

func (r resourceCommands[T]) subcommands() []*cli.Command {
	cmds := []*cli.Command{
		{
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "List " + r.plural,
			Flags:   r.withParent(queryFlag),
			Action:  r.list,
		},
		{
			Name:      "get",
			Usage:     "Show one " + r.name,
			ArgsUsage: "ID",
			Flags:     r.withParent(),
			Action:    r.get,
		},
		{
			Name:   r.create,
			Usage:  "Create a " + r.name,
			Flags:  r.withParent(r.fields...),
			Action: r.createAction,
		},
	}
	if r.updatable {
		cmds = append(cmds, &cli.Command{
			Name:      "update",
			Usage:     "Update a " + r.name + "; unset flags keep their current value",
			ArgsUsage: "ID",
			Flags:     r.withParent(r.fields...),
			Action:    r.update,
		})
	}
	cmds = append(cmds, &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a " + r.name,
		ArgsUsage: "ID",
		Flags:     r.withParent(forceFlag),
		Action:    r.delete,
	})
	return cmds
}

func (r resourceCommands[T]) list(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	parent := r.parent(c)
	query, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	key := r.listKey(parent)
	if len(query) > 0 {
		key = append(key, query.Encode())
	}
	data, err := rt.read(c.Context, key, func(ctx context.Context) (any, error) {
		return r.endpoint(rt, parent).List(ctx, query)
	})
	if err != nil {
		return err
	}
	return renderPage(c, data.(*client.Page), r.plural)
}

func (r resourceCommands[T]) get(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, 0, r.name)
	if err != nil {
		return err
	}
	parent := r.parent(c)

	data, err := rt.read(c.Context, r.itemKey(parent, id), func(ctx context.Context) (any, error) {
		return r.endpoint(rt, parent).Get(ctx, id)
	})
	if err != nil {
		return err
	}
	return render(c, data)
}

func (r resourceCommands[T]) createAction(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	parent := r.parent(c)

	v := new(T)
	if err := r.apply(c, v); err != nil {
		return err
	}
	out, err := rt.mutate(c.Context, func(ctx context.Context) (any, error) {
		return r.endpoint(rt, parent).Create(ctx, v)
	}, r.invalidations(parent)...)
	if err != nil {
		return err
	}
	notice(c, "Created %s.", r.name)
	return renderRaw(c, out.(json.RawMessage))
}

func (r resourceCommands[T]) update(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, 0, r.name)
	if err != nil {
		return err
	}
	parent := r.parent(c)
	endpoint := r.endpoint(rt, parent)

	// The service replaces the whole record, so start from the current one.
	current, err := endpoint.Get(c.Context, id)
	if err != nil {
		return err
	}
	if err := r.apply(c, current); err != nil {
		return err
	}
	out, err := rt.mutate(c.Context, func(ctx context.Context) (any, error) {
		return endpoint.Update(ctx, id, current)
	}, append(r.invalidations(parent), r.itemKey(parent, id))...)
	if err != nil {
		return err
	}
	notice(c, "Updated %s %d.", r.name, id)
	return renderRaw(c, out.(json.RawMessage))
}

func (r resourceCommands[T]) delete(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, 0, r.name)
	if err != nil {
		return err
	}
	parent := r.parent(c)

	if !confirm(c, fmt.Sprintf("Delete %s %d?", r.name, id)) {
		fmt.Fprintln(c.App.Writer, "Aborted.")
		return nil
	}
	if _, err := rt.mutate(c.Context, func(ctx context.Context) (any, error) {
		return r.endpoint(rt, parent).Delete(ctx, id)
	}, append(r.invalidations(parent), r.itemKey(parent, id))...); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %s %d.\n", r.name, id)
	return nil
}

func (r resourceCommands[T]) invalidations(parent int64) []querycache.Key {
	keys := []querycache.Key{r.listKey(parent)}
	if r.dependents != nil {
		keys = append(keys, r.dependents(parent)...)
	}
	return keys
}

// renderPage renders the results of a list page, followed by the total in
// table mode.
func renderPage(c *cli.Context, page *client.Page, plural string) error {
	if len(page.Results) == 0 {
		notice(c, "No %s found.", plural)
		if isTable(c) {
			return nil
		}
	}
	if err := render(c, page.Results); err != nil {
		return err
	}
	if isTable(c) && len(page.Results) > 0 {
		fmt.Fprintf(c.App.Writer, "\nTotal: %d %s\n", page.Count, plural)
	}
	return nil
}

// renderRaw renders a mutation payload; an empty body renders nothing.
func renderRaw(c *cli.Context, raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return render(c, raw)
}

func parseFilters(pairs []string) (url.Values, error) {
	query := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, domain.ErrValidation.WithDetails(fmt.Sprintf("filter %q is not KEY=VALUE", p))
		}
		query.Add(k, v)
	}
	return query, nil
}

// ============================================================================
// Top-level resources
// ============================================================================

var tournaments = resourceCommands[domain.Tournament]{
	name:      "tournament",
	plural:    "tournaments",
	create:    "create",
	updatable: true,
	endpoint:  func(rt *Runtime, _ int64) *client.Resource[domain.Tournament] { return rt.Client.Tournaments() },
	listKey:   func(int64) querycache.Key { return querycache.K("tournaments") },
	itemKey:   func(_, id int64) querycache.Key { return querycache.K("tournament", id) },
	fields: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Tournament name"},
		&cli.StringFlag{Name: "description", Usage: "Free text description"},
		&cli.StringFlag{Name: "start-date", Usage: "First day (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "end-date", Usage: "Last day (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "venue", Usage: "Venue"},
		&cli.StringFlag{Name: "type", Usage: "individual, inter_club or both"},
		&cli.StringFlag{Name: "status", Usage: "draft, active or completed"},
	},
	apply: func(c *cli.Context, t *domain.Tournament) error {
		setString(c, "name", &t.Name)
		setString(c, "description", &t.Description)
		setString(c, "start-date", &t.StartDate)
		setString(c, "end-date", &t.EndDate)
		setString(c, "venue", &t.Venue)
		if c.IsSet("type") {
			t.TournamentType = domain.TournamentType(c.String("type"))
		}
		if c.IsSet("status") {
			t.Status = domain.TournamentStatus(c.String("status"))
		}
		return nil
	},
}

var clubs = resourceCommands[domain.Club]{
	name:      "club",
	plural:    "clubs",
	create:    "create",
	updatable: true,
	endpoint:  func(rt *Runtime, _ int64) *client.Resource[domain.Club] { return rt.Client.Clubs() },
	listKey:   func(int64) querycache.Key { return querycache.K("clubs") },
	itemKey:   func(_, id int64) querycache.Key { return querycache.K("club", id) },
	fields: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Club name"},
		&cli.StringFlag{Name: "location", Usage: "Club location"},
	},
	apply: func(c *cli.Context, v *domain.Club) error {
		setString(c, "name", &v.Name)
		setString(c, "location", &v.Location)
		return nil
	},
}

var golfers = resourceCommands[domain.Golfer]{
	name:      "golfer",
	plural:    "golfers",
	create:    "create",
	updatable: true,
	endpoint:  func(rt *Runtime, _ int64) *client.Resource[domain.Golfer] { return rt.Client.Golfers() },
	listKey:   func(int64) querycache.Key { return querycache.K("golfers") },
	itemKey:   func(_, id int64) querycache.Key { return querycache.K("golfer", id) },
	fields: []cli.Flag{
		&cli.StringFlag{Name: "first-name", Usage: "First name"},
		&cli.StringFlag{Name: "last-name", Usage: "Last name"},
		&cli.Int64Flag{Name: "club", Usage: "Club ID"},
		&cli.Float64Flag{Name: "handicap", Usage: "Handicap index (-10 to 54)"},
	},
	apply: func(c *cli.Context, v *domain.Golfer) error {
		setString(c, "first-name", &v.FirstName)
		setString(c, "last-name", &v.LastName)
		if c.IsSet("club") {
			v.Club = c.Int64("club")
		}
		if c.IsSet("handicap") {
			v.Handicap = c.Float64("handicap")
		}
		return nil
	},
}

// ============================================================================
// Tournament sub-resources
// ============================================================================

func standingsKey(tournamentID int64) querycache.Key {
	return querycache.K("tournament-standings", tournamentID)
}

var participants = resourceCommands[domain.Participant]{
	name:     "participant",
	plural:   "participants",
	create:   "add",
	nested:   true,
	endpoint: func(rt *Runtime, tid int64) *client.Resource[domain.Participant] { return rt.Client.Participants(tid) },
	listKey:  func(tid int64) querycache.Key { return querycache.K("tournament-participants", tid) },
	itemKey:  func(tid, id int64) querycache.Key { return querycache.K("tournament-participants", tid, id) },
	dependents: func(tid int64) []querycache.Key {
		return []querycache.Key{standingsKey(tid)}
	},
	fields: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Participant name"},
		&cli.StringFlag{Name: "email", Usage: "Contact email"},
		&cli.StringFlag{Name: "phone", Usage: "Contact phone (max 20 characters)"},
		&cli.Float64Flag{Name: "handicap", Usage: "Handicap index"},
		&cli.BoolFlag{Name: "club-participant", Usage: "Entrant represents a club"},
	},
	apply: func(c *cli.Context, v *domain.Participant) error {
		setString(c, "name", &v.Name)
		setString(c, "email", &v.Email)
		setString(c, "phone", &v.Phone)
		if c.IsSet("handicap") {
			h := c.Float64("handicap")
			v.Handicap = &h
		}
		if c.IsSet("club-participant") {
			v.IsClubParticipant = c.Bool("club-participant")
		}
		return nil
	},
}

var results = resourceCommands[domain.TournamentResult]{
	name:      "result",
	plural:    "results",
	create:    "add",
	nested:    true,
	updatable: true,
	endpoint:  func(rt *Runtime, tid int64) *client.Resource[domain.TournamentResult] { return rt.Client.Results(tid) },
	listKey:   func(tid int64) querycache.Key { return querycache.K("tournament-results", tid) },
	itemKey:   func(tid, id int64) querycache.Key { return querycache.K("tournament-results", tid, id) },
	dependents: func(tid int64) []querycache.Key {
		return []querycache.Key{standingsKey(tid)}
	},
	fields: []cli.Flag{
		&cli.Int64Flag{Name: "participant", Usage: "Participant ID"},
		&cli.IntFlag{Name: "round", Usage: "Round number"},
		&cli.IntFlag{Name: "score", Usage: "Strokes"},
		&cli.StringFlag{Name: "date", Usage: "Date played (YYYY-MM-DD)"},
	},
	apply: func(c *cli.Context, v *domain.TournamentResult) error {
		if c.IsSet("participant") {
			v.Participant = c.Int64("participant")
		}
		if c.IsSet("round") {
			v.RoundNumber = c.Int("round")
		}
		if c.IsSet("score") {
			v.Score = c.Int("score")
		}
		setString(c, "date", &v.DatePlayed)
		return nil
	},
}

var points = resourceCommands[domain.TournamentPoints]{
	name:      "points entry",
	plural:    "points entries",
	create:    "add",
	nested:    true,
	updatable: true,
	endpoint:  func(rt *Runtime, tid int64) *client.Resource[domain.TournamentPoints] { return rt.Client.Points(tid) },
	listKey:   func(tid int64) querycache.Key { return querycache.K("tournament-points", tid) },
	itemKey:   func(tid, id int64) querycache.Key { return querycache.K("tournament-points", tid, id) },
	dependents: func(tid int64) []querycache.Key {
		return []querycache.Key{standingsKey(tid)}
	},
	fields: []cli.Flag{
		&cli.IntFlag{Name: "position", Usage: "Finishing position"},
		&cli.IntFlag{Name: "points", Usage: "Points awarded"},
	},
	apply: func(c *cli.Context, v *domain.TournamentPoints) error {
		if c.IsSet("position") {
			v.Position = c.Int("position")
		}
		if c.IsSet("points") {
			v.Points = c.Int("points")
		}
		return nil
	},
}

func setString(c *cli.Context, flag string, dst *string) {
	if c.IsSet(flag) {
		*dst = c.String(flag)
	}
}
