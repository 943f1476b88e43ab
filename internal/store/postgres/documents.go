package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

const documentColumns = `id, project_id, name, added_by, added_on, content_type, storage_key`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanDocument(row rowScanner) (*project.Document, error) {
	var d project.Document
	if err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.AddedBy, &d.AddedOn, &d.ContentType, &d.StorageKey); err != nil {
		return nil, err
	}
	d.AddedOn = d.AddedOn.UTC()
	return &d, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *project.Document, upload func(*project.Document) error) (*project.Document, error) {
	out := *doc
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (project_id, name, added_by, added_on, content_type, storage_key)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			doc.ProjectID, doc.Name, doc.AddedBy, doc.AddedOn, doc.ContentType, doc.StorageKey,
		).Scan(&out.ID)
		if err != nil {
			switch code, constraint := pqCode(err); code {
			case codeUniqueViolation:
				return project.ErrKeyExists
			case codeForeignKeyViolation:
				return foreignKeyError(constraint)
			}
			return fmt.Errorf("insert document: %w", err)
		}
		if upload != nil {
			return upload(&out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindDocument(ctx context.Context, id int64) (*project.Document, error) {
	return findDocument(ctx, s.db, id, false)
}

func findDocument(ctx context.Context, q queryer, id int64, lock bool) (*project.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	d, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find document %d: %w", id, project.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find document %d: %w", id, err)
	}
	return d, nil
}

func (s *Store) ListDocuments(ctx context.Context, projectID int64) ([]*project.Document, error) {
	return listDocuments(ctx, s.db, projectID)
}

func listDocuments(ctx context.Context, q queryer, projectID int64) ([]*project.Document, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %d: %w", projectID, err)
	}
	defer rows.Close()

	var out []*project.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceDocument(ctx context.Context, doc *project.Document, upload func(*project.Document) error) (*project.Document, error) {
	out := *doc
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE documents SET name = $2, added_by = $3, added_on = $4, content_type = $5, storage_key = $6 WHERE id = $1`,
			doc.ID, doc.Name, doc.AddedBy, doc.AddedOn, doc.ContentType, doc.StorageKey,
		)
		if err != nil {
			if code, _ := pqCode(err); code == codeUniqueViolation {
				return project.ErrKeyExists
			}
			return fmt.Errorf("replace document %d: %w", doc.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("replace document %d: %w", doc.ID, err)
		}
		if affected == 0 {
			return fmt.Errorf("replace document %d: %w", doc.ID, project.ErrDocumentNotFound)
		}
		if upload != nil {
			return upload(&out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id int64, remove func(*project.Document) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		doc, err := findDocument(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if remove != nil {
			if err := remove(doc); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete document %d: %w", id, err)
		}
		return nil
	})
}

func (s *Store) DocumentKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE storage_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check storage key: %w", err)
	}
	return exists, nil
}

const logoColumns = `project_id, logo_name, uploaded_by, uploaded_on, storage_key`

func findLogo(ctx context.Context, q queryer, projectID int64) (*project.Logo, error) {
	var l project.Logo
	err := q.QueryRowContext(ctx,
		`SELECT `+logoColumns+` FROM logos WHERE project_id = $1`, projectID,
	).Scan(&l.ProjectID, &l.Name, &l.UploadedBy, &l.UploadedOn, &l.StorageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find logo of project %d: %w", projectID, project.ErrLogoNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find logo of project %d: %w", projectID, err)
	}
	l.UploadedOn = l.UploadedOn.UTC()
	return &l, nil
}

func (s *Store) FindLogo(ctx context.Context, projectID int64) (*project.Logo, error) {
	return findLogo(ctx, s.db, projectID)
}

func touchProject(ctx context.Context, tx *sql.Tx, projectID int64, by string, at time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET updated_by = $2, updated_on = $3 WHERE id = $1`, projectID, by, at)
	if err != nil {
		return fmt.Errorf("touch project %d: %w", projectID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("touch project %d: %w", projectID, project.ErrProjectNotFound)
	}
	return nil
}

func (s *Store) PutLogo(ctx context.Context, logo *project.Logo, upload func(*project.Logo) error) (*project.Logo, error) {
	out := *logo
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO logos (project_id, logo_name, uploaded_by, uploaded_on, storage_key)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (project_id) DO UPDATE SET
			   logo_name = EXCLUDED.logo_name,
			   uploaded_by = EXCLUDED.uploaded_by,
			   uploaded_on = EXCLUDED.uploaded_on,
			   storage_key = EXCLUDED.storage_key`,
			logo.ProjectID, logo.Name, logo.UploadedBy, logo.UploadedOn, logo.StorageKey,
		)
		if err != nil {
			if code, constraint := pqCode(err); code == codeForeignKeyViolation {
				return foreignKeyError(constraint)
			}
			return fmt.Errorf("put logo: %w", err)
		}
		if err := touchProject(ctx, tx, logo.ProjectID, logo.UploadedBy, logo.UploadedOn); err != nil {
			return err
		}
		if upload != nil {
			return upload(&out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteLogo(ctx context.Context, projectID int64, by string, at time.Time, remove func(*project.Logo) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		logo, err := findLogo(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if remove != nil {
			if err := remove(logo); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM logos WHERE project_id = $1`, projectID); err != nil {
			return fmt.Errorf("delete logo: %w", err)
		}
		return touchProject(ctx, tx, projectID, by, at)
	})
}
