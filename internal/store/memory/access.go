package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

func (s *Store) Grant(_ context.Context, projectID int64, username string, role project.Role) (*project.AccessGrant, error) {
	if err := role.Validate(); err != nil {
		return nil, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := findProject(txn, projectID); err != nil {
		return nil, err
	}
	user, err := txn.First(tblUsers, "id", username)
	if err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("grant access to %s: %w", username, auth.ErrUserNotFound)
	}

	existing, err := txn.First(tblGrants, "id", projectID, username)
	if err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("grant %s on project %d: %w", username, projectID, project.ErrGrantExists)
	}

	grant := &project.AccessGrant{ProjectID: projectID, Username: username, Role: role, IsValid: true}
	if err := txn.Insert(tblGrants, grant); err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	txn.Commit()

	cp := *grant
	return &cp, nil
}

func (s *Store) FindGrant(_ context.Context, projectID int64, username string) (*project.AccessGrant, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblGrants, "id", projectID, username)
	if err != nil {
		return nil, fmt.Errorf("find grant: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find grant %s on project %d: %w", username, projectID, project.ErrGrantNotFound)
	}
	cp := *raw.(*project.AccessGrant)
	return &cp, nil
}

func (s *Store) PrivilegesFor(_ context.Context, username string) ([]int64, []int64, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	grants, err := collectGrants(txn, "username", username)
	if err != nil {
		return nil, nil, fmt.Errorf("privileges for %s: %w", username, err)
	}

	owned := []int64{}
	participating := []int64{}
	for _, g := range grants {
		if !g.IsValid {
			continue
		}
		switch g.Role {
		case project.RoleOwner:
			owned = append(owned, g.ProjectID)
		case project.RoleParticipant:
			participating = append(participating, g.ProjectID)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i] < owned[j] })
	sort.Slice(participating, func(i, j int) bool { return participating[i] < participating[j] })
	return owned, participating, nil
}

func (s *Store) Contributors(_ context.Context, projectID int64) ([]string, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	grants, err := collectGrants(txn, "project_id", projectID)
	if err != nil {
		return nil, fmt.Errorf("contributors of %d: %w", projectID, err)
	}

	sort.SliceStable(grants, func(i, j int) bool {
		if grants[i].Role != grants[j].Role {
			return grants[i].Role == project.RoleOwner
		}
		return grants[i].Username < grants[j].Username
	})
	out := make([]string, 0, len(grants))
	for _, g := range grants {
		out = append(out, g.Username)
	}
	return out, nil
}

func collectGrants(txn *memdb.Txn, index string, arg interface{}) ([]*project.AccessGrant, error) {
	iter, err := txn.Get(tblGrants, index, arg)
	if err != nil {
		return nil, err
	}
	var out []*project.AccessGrant
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		cp := *raw.(*project.AccessGrant)
		out = append(out, &cp)
	}
	return out, nil
}
