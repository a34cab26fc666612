package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
)

type validator interface {
	Validate() error
}

// Resource is a standard list-or-item endpoint family:
//
//	GET    <base>              list
//	POST   <base><create>      create
//	GET    <base><id>/         detail
//	PUT    <base><id>/update/  update
//	DELETE <base><id>/delete/  delete
type Resource[T any] struct {
	c         *Client
	name      string
	base      string
	create    string
	updatable bool
}

func newResource[T any](c *Client, name, base, create string, updatable bool) *Resource[T] {
	return &Resource[T]{c: c, name: name, base: base, create: create, updatable: updatable}
}

// Name returns the resource name used in messages.
func (r *Resource[T]) Name() string {
	return r.name
}

// Path returns the list path of the resource.
func (r *Resource[T]) Path() string {
	return r.base
}

func (r *Resource[T]) itemPath(id int64, action string) string {
	p := fmt.Sprintf("%s%d/", r.base, id)
	if action != "" {
		p += action + "/"
	}
	return p
}

// List returns the normalized list page.
func (r *Resource[T]) List(ctx context.Context, query url.Values) (*Page, error) {
	return r.c.List(ctx, r.base, query)
}

// Items lists the resource and decodes every result.
func (r *Resource[T]) Items(ctx context.Context, query url.Values) ([]T, error) {
	page, err := r.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return Decode[T](page)
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	body, err := r.c.Get(ctx, r.itemPath(id, ""), nil)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode %s %d: %w", r.name, id, err)
	}
	return &v, nil
}

// Create validates v and creates it. The server payload is returned as-is.
func (r *Resource[T]) Create(ctx context.Context, v *T) (json.RawMessage, error) {
	if err := validate(v); err != nil {
		return nil, err
	}
	return r.c.Post(ctx, r.base+r.create, v)
}

// Update validates v and replaces record id with it.
func (r *Resource[T]) Update(ctx context.Context, id int64, v *T) (json.RawMessage, error) {
	if !r.updatable {
		return nil, domain.ErrValidation.WithDetails(r.name + " records cannot be updated")
	}
	if err := validate(v); err != nil {
		return nil, err
	}
	return r.c.Put(ctx, r.itemPath(id, "update"), v)
}

// Delete removes record id.
func (r *Resource[T]) Delete(ctx context.Context, id int64) (json.RawMessage, error) {
	return r.c.Delete(ctx, r.itemPath(id, "delete"))
}

func validate(v any) error {
	if val, ok := v.(validator); ok {
		return val.Validate()
	}
	return nil
}

// Tournaments returns the tournament endpoints.
func (c *Client) Tournaments() *Resource[domain.Tournament] {
	return newResource[domain.Tournament](c, "tournament", "/tournaments/", "create/", true)
}

// Clubs returns the club endpoints.
func (c *Client) Clubs() *Resource[domain.Club] {
	return newResource[domain.Club](c, "club", "/clubs/", "create/", true)
}

// Golfers returns the golfer endpoints.
func (c *Client) Golfers() *Resource[domain.Golfer] {
	return newResource[domain.Golfer](c, "golfer", "/golfers/", "create/", true)
}

// Participants returns the participant endpoints of a tournament.
// The service exposes no update route for participants.
func (c *Client) Participants(tournamentID int64) *Resource[domain.Participant] {
	return newResource[domain.Participant](c, "participant", nested(tournamentID, "participants"), "add/", false)
}

// Results returns the round result endpoints of a tournament.
func (c *Client) Results(tournamentID int64) *Resource[domain.TournamentResult] {
	return newResource[domain.TournamentResult](c, "result", nested(tournamentID, "results"), "add/", true)
}

// Points returns the points table endpoints of a tournament.
func (c *Client) Points(tournamentID int64) *Resource[domain.TournamentPoints] {
	return newResource[domain.TournamentPoints](c, "points", nested(tournamentID, "points"), "add/", true)
}

func nested(tournamentID int64, name string) string {
	return fmt.Sprintf("/tournaments/%d/%s/", tournamentID, name)
}

// Standings returns the computed leaderboard of a tournament.
func (c *Client) Standings(ctx context.Context, tournamentID int64) (*Page, error) {
	return c.List(ctx, nested(tournamentID, "standings"), nil)
}

// StandingsPDF streams the leaderboard PDF of a tournament into w.
func (c *Client) StandingsPDF(ctx context.Context, tournamentID int64, w io.Writer) error {
	return c.Download(ctx, nested(tournamentID, "standings")+"pdf/", "application/pdf", w)
}

// Users returns the staff account endpoints.
func (c *Client) Users() *UserService {
	return &UserService{c: c}
}

// UserService covers the account endpoints, which do not follow the
// standard resource layout.
type UserService struct {
	c *Client
}

// List returns every staff account.
func (s *UserService) List(ctx context.Context, query url.Values) (*Page, error) {
	return s.c.List(ctx, "/users/list/", query)
}

// Register creates a staff account.
func (s *UserService) Register(ctx context.Context, u *domain.User) (json.RawMessage, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return s.c.Post(ctx, "/users/register/", u)
}
