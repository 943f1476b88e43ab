package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

func (s *Store) Grant(ctx context.Context, projectID int64, username string, role project.Role) (*project.AccessGrant, error) {
	if err := role.Validate(); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO project_access (project_id, username, access_type, is_valid)
		 VALUES ($1, $2, $3, TRUE)
		 ON CONFLICT (project_id, username) DO NOTHING`,
		projectID, username, string(role),
	)
	if err != nil {
		if code, constraint := pqCode(err); code == codeForeignKeyViolation {
			return nil, fmt.Errorf("grant %s on project %d: %w", username, projectID, foreignKeyError(constraint))
		}
		return nil, fmt.Errorf("grant access: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("grant %s on project %d: %w", username, projectID, project.ErrGrantExists)
	}

	return &project.AccessGrant{ProjectID: projectID, Username: username, Role: role, IsValid: true}, nil
}

func (s *Store) FindGrant(ctx context.Context, projectID int64, username string) (*project.AccessGrant, error) {
	var (
		g    project.AccessGrant
		role string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id, username, access_type, is_valid FROM project_access WHERE project_id = $1 AND username = $2`,
		projectID, username,
	).Scan(&g.ProjectID, &g.Username, &role, &g.IsValid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find grant %s on project %d: %w", username, projectID, project.ErrGrantNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find grant: %w", err)
	}
	g.Role = project.Role(role)
	return &g, nil
}

func (s *Store) PrivilegesFor(ctx context.Context, username string) ([]int64, []int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, access_type FROM project_access WHERE username = $1 AND is_valid ORDER BY project_id`,
		username,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("privileges for %s: %w", username, err)
	}
	defer rows.Close()

	owned := []int64{}
	participating := []int64{}
	for rows.Next() {
		var (
			id   int64
			role string
		)
		if err := rows.Scan(&id, &role); err != nil {
			return nil, nil, fmt.Errorf("scan grant: %w", err)
		}
		switch project.Role(role) {
		case project.RoleOwner:
			owned = append(owned, id)
		case project.RoleParticipant:
			participating = append(participating, id)
		}
	}
	return owned, participating, rows.Err()
}

func (s *Store) Contributors(ctx context.Context, projectID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username FROM project_access WHERE project_id = $1 ORDER BY access_type = 'owner' DESC, username`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("contributors of %d: %w", projectID, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan contributor: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
