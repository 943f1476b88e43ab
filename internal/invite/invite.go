// Package invite issues and redeems signed project invitations.
package invite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

// DefaultTTL is how long an invite stays redeemable.
const DefaultTTL = 72 * time.Hour

// Subject is the subject line of invite emails.
const Subject = "Invite to project"

var (
	ErrUnknownEmail    = errors.New("no users are registered with provided email address")
	ErrSelfInvite      = errors.New("cannot invite yourself to project")
	ErrInvalidToken    = errors.New("invalid join token")
	ErrTokenExpired    = errors.New("join token expired")
	ErrProjectMismatch = errors.New("project ids in token and request do not match")
)

// ProjectLookup finds projects by id.
type ProjectLookup interface {
	FindProject(ctx context.Context, id int64) (*project.Project, error)
}

// Invitation is a signed invite ready to be mailed.
type Invitation struct {
	Token     string
	Invitee   *auth.User
	Subject   string
	Body      string
	ExpiresAt time.Time
}

var bodyTemplate = template.Must(template.New("invite").Parse(
	"Hello,\n" +
		"{{.Inviter}} invited you to join the project '{{.Project}}'.\n" +
		"To accept the invite go to: {{.Link}}\n" +
		"This invite is valid for {{.Days}} days. This is an automatic email, do not reply to this address. " +
		"For additional info reply to {{.InviterEmail}}\n",
))

// Issuer signs invitations with the invite codec.
type Issuer struct {
	codec    *auth.TokenCodec
	users    auth.UserStore
	projects ProjectLookup
	baseURL  string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer creates an issuer. baseURL is the public address of the
// server and prefixes the join link.
func NewIssuer(codec *auth.TokenCodec, users auth.UserStore, projects ProjectLookup, baseURL string, ttl time.Duration) *Issuer {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		codec:    codec,
		users:    users,
		projects: projects,
		baseURL:  strings.TrimRight(baseURL, "/"),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue creates an invitation for the user registered under invitedEmail.
// It does not send anything.
func (i *Issuer) Issue(ctx context.Context, projectID int64, inviter, invitedEmail string) (*Invitation, error) {
	p, err := i.projects.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	invitee, err := i.users.FindUserByEmail(ctx, strings.TrimSpace(invitedEmail))
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, ErrUnknownEmail
	}
	if err != nil {
		return nil, fmt.Errorf("find invitee: %w", err)
	}
	if invitee.Username == inviter {
		return nil, ErrSelfInvite
	}

	from, err := i.users.FindUser(ctx, inviter)
	if err != nil {
		return nil, fmt.Errorf("find inviter: %w", err)
	}

	token, err := i.codec.Sign(map[string]any{
		"sub":     invitee.Username,
		"project": projectID,
	}, i.ttl)
	if err != nil {
		return nil, err
	}

	body, err := i.render(from, p, token)
	if err != nil {
		return nil, err
	}

	return &Invitation{
		Token:     token,
		Invitee:   invitee,
		Subject:   Subject,
		Body:      body,
		ExpiresAt: i.now().UTC().Add(i.ttl),
	}, nil
}

func (i *Issuer) render(from *auth.User, p *project.Project, token string) (string, error) {
	link := fmt.Sprintf("%s/join?project_id=%d&join_token=%s", i.baseURL, p.ID, url.QueryEscape(token))

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, map[string]any{
		"Inviter":      from.FullName,
		"Project":      p.Name,
		"Link":         link,
		"Days":         int(i.ttl.Hours() / 24),
		"InviterEmail": from.Email,
	})
	if err != nil {
		return "", fmt.Errorf("render invite: %w", err)
	}
	return buf.String(), nil
}

// Redeemer turns a valid invite token into a participant grant.
type Redeemer struct {
	codec    *auth.TokenCodec
	users    auth.UserStore
	projects ProjectLookup
	access   project.AccessStore
}

// NewRedeemer creates a redeemer using the same codec as the issuer.
func NewRedeemer(codec *auth.TokenCodec, users auth.UserStore, projects ProjectLookup, access project.AccessStore) *Redeemer {
	return &Redeemer{codec: codec, users: users, projects: projects, access: access}
}

// Redeem checks the project, verifies the token and grants participant
// access. Redeeming again as an existing participant returns the
// existing grant.
func (r *Redeemer) Redeem(ctx context.Context, token string, projectID int64) (*project.AccessGrant, error) {
	if _, err := r.projects.FindProject(ctx, projectID); err != nil {
		return nil, err
	}

	claims, err := r.codec.Verify(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrInvalidToken
	}

	username, ok := auth.StringClaim(claims, "sub")
	if !ok {
		return nil, ErrInvalidToken
	}
	if _, err := r.users.FindUser(ctx, username); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find invitee: %w", err)
	}

	embedded, ok := auth.IntClaim(claims, "project")
	if !ok {
		return nil, ErrInvalidToken
	}
	if embedded != projectID {
		return nil, ErrProjectMismatch
	}

	grant, err := r.access.Grant(ctx, projectID, username, project.RoleParticipant)
	if errors.Is(err, project.ErrGrantExists) {
		existing, findErr := r.access.FindGrant(ctx, projectID, username)
		if findErr != nil {
			return nil, findErr
		}
		if existing.Role == project.RoleParticipant {
			return existing, nil
		}
		return nil, err
	}
	return grant, err
}
