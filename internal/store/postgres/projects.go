package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

const projectColumns = `id, name, description, created_by, created_on, updated_by, updated_on`

func scanProject(row rowScanner) (*project.Project, error) {
	var (
		p         project.Project
		updatedBy sql.NullString
		updatedOn sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedOn, &updatedBy, &updatedOn); err != nil {
		return nil, err
	}
	if updatedBy.Valid {
		p.UpdatedBy = &updatedBy.String
	}
	if updatedOn.Valid {
		t := updatedOn.Time.UTC()
		p.UpdatedOn = &t
	}
	p.CreatedOn = p.CreatedOn.UTC()
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p *project.Project) (*project.Project, error) {
	out := *p
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO projects (name, description, created_by, created_on) VALUES ($1, $2, $3, $4) RETURNING id`,
			p.Name, p.Description, p.CreatedBy, p.CreatedOn,
		).Scan(&out.ID)
		if err != nil {
			if code, constraint := pqCode(err); code == codeForeignKeyViolation {
				return foreignKeyError(constraint)
			}
			return fmt.Errorf("insert project: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO project_access (project_id, username, access_type, is_valid) VALUES ($1, $2, $3, TRUE)`,
			out.ID, p.CreatedBy, string(project.RoleOwner),
		)
		if err != nil {
			return fmt.Errorf("insert owner grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &out, nil
}

func (s *Store) FindProject(ctx context.Context, id int64) (*project.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find project %d: %w", id, project.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find project %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, ids []int64) ([]*project.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, id int64, upd project.Update, by string, at time.Time) (*project.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`UPDATE projects
		 SET name = COALESCE($2, name), description = COALESCE($3, description), updated_by = $4, updated_on = $5
		 WHERE id = $1
		 RETURNING `+projectColumns,
		id, upd.Name, upd.Description, by, at,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update project %d: %w", id, project.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) DeleteProject(ctx context.Context, id int64, remove project.BlobRemover) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete project %d: %w", id, project.ErrProjectNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock project %d: %w", id, err)
		}

		docs, err := listDocuments(ctx, tx, id)
		if err != nil {
			return err
		}
		logo, err := findLogo(ctx, tx, id)
		if err != nil && !errors.Is(err, project.ErrLogoNotFound) {
			return err
		}

		if remove != nil {
			if err := remove(ctx, docs, logo); err != nil {
				return err
			}
		}

		// grants, documents and logo cascade
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete project %d: %w", id, err)
		}
		return nil
	})
}
