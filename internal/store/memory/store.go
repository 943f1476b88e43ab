// Package memory implements the storage interfaces on go-memdb. It backs
// the in-memory deployment variant and the service tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

// Store is an in-memory project.Store.
type Store struct {
	db *memdb.MemDB

	// Sequences are only advanced inside write transactions, which
	// memdb serializes.
	projectSeq  int64
	documentSeq int64
}

var _ project.Store = (*Store)(nil)

// New creates an empty store
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	return &Store{db: db}, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateUser(_ context.Context, user *auth.User) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tblUsers, "id", user.Username)
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	if existing != nil {
		return fmt.Errorf("create user %s: %w", user.Username, auth.ErrUsernameTaken)
	}
	// memdb does not enforce unique secondary indexes on insert.
	existing, err = txn.First(tblUsers, "email", strings.ToLower(user.Email))
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	if existing != nil {
		return fmt.Errorf("create user %s: %w", user.Username, auth.ErrEmailTaken)
	}

	cp := *user
	if err := txn.Insert(tblUsers, &cp); err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	txn.Commit()
	return nil
}

func (s *Store) FindUser(_ context.Context, username string) (*auth.User, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblUsers, "id", username)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", username, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find user %s: %w", username, auth.ErrUserNotFound)
	}
	cp := *raw.(*auth.User)
	return &cp, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblUsers, "email", strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find user by email: %w", auth.ErrUserNotFound)
	}
	cp := *raw.(*auth.User)
	return &cp, nil
}

func (s *Store) CreateProject(_ context.Context, p *project.Project) (*project.Project, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	s.projectSeq++
	cp := *p
	cp.ID = s.projectSeq
	if err := txn.Insert(tblProjects, &cp); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	grant := &project.AccessGrant{
		ProjectID: cp.ID,
		Username:  cp.CreatedBy,
		Role:      project.RoleOwner,
		IsValid:   true,
	}
	if err := txn.Insert(tblGrants, grant); err != nil {
		return nil, fmt.Errorf("create owner grant: %w", err)
	}
	txn.Commit()

	out := cp
	return &out, nil
}

func findProject(txn *memdb.Txn, id int64) (*project.Project, error) {
	raw, err := txn.First(tblProjects, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find project %d: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find project %d: %w", id, project.ErrProjectNotFound)
	}
	return raw.(*project.Project), nil
}

func copyProject(p *project.Project) *project.Project {
	cp := *p
	if p.UpdatedBy != nil {
		by := *p.UpdatedBy
		cp.UpdatedBy = &by
	}
	if p.UpdatedOn != nil {
		on := *p.UpdatedOn
		cp.UpdatedOn = &on
	}
	return &cp
}

func (s *Store) FindProject(_ context.Context, id int64) (*project.Project, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	p, err := findProject(txn, id)
	if err != nil {
		return nil, err
	}
	return copyProject(p), nil
}

func (s *Store) ListProjects(_ context.Context, ids []int64) ([]*project.Project, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var out []*project.Project
	var last int64
	for i, id := range sorted {
		if i > 0 && id == last {
			continue
		}
		last = id
		raw, err := txn.First(tblProjects, "id", id)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		if raw != nil {
			out = append(out, copyProject(raw.(*project.Project)))
		}
	}
	return out, nil
}

// touch stamps p as updated; callers hold a write txn.
func touch(txn *memdb.Txn, p *project.Project, by string, at time.Time) (*project.Project, error) {
	next := copyProject(p)
	next.UpdatedBy = &by
	next.UpdatedOn = &at
	if err := txn.Insert(tblProjects, next); err != nil {
		return nil, fmt.Errorf("update project %d: %w", p.ID, err)
	}
	return next, nil
}

func (s *Store) UpdateProject(_ context.Context, id int64, upd project.Update, by string, at time.Time) (*project.Project, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	p, err := findProject(txn, id)
	if err != nil {
		return nil, err
	}
	next := copyProject(p)
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	next, err = touch(txn, next, by, at)
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return copyProject(next), nil
}

// DeleteProject collects the blobs from a snapshot, removes them with no
// txn open and then deletes every row of the project.
func (s *Store) DeleteProject(ctx context.Context, id int64, remove project.BlobRemover) error {
	read := s.db.Txn(false)
	docs, logo, err := projectBlobs(read, id)
	read.Abort()
	if err != nil {
		return err
	}

	if remove != nil {
		if err := remove(ctx, docs, logo); err != nil {
			return err
		}
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := findProject(txn, id); err != nil {
		return err
	}
	for _, tbl := range []string{tblDocuments, tblGrants} {
		if _, err := txn.DeleteAll(tbl, "project_id", id); err != nil {
			return fmt.Errorf("delete project %d %s: %w", id, tbl, err)
		}
	}
	if _, err := txn.DeleteAll(tblLogos, "id", id); err != nil {
		return fmt.Errorf("delete project %d logo: %w", id, err)
	}
	if _, err := txn.DeleteAll(tblProjects, "id", id); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	txn.Commit()
	return nil
}

func projectBlobs(txn *memdb.Txn, id int64) ([]*project.Document, *project.Logo, error) {
	if _, err := findProject(txn, id); err != nil {
		return nil, nil, err
	}
	docs, err := listDocuments(txn, id)
	if err != nil {
		return nil, nil, err
	}
	logo, err := findLogo(txn, id)
	if errors.Is(err, project.ErrLogoNotFound) {
		return docs, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return docs, logo, nil
}
