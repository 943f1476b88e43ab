package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

// Blob callbacks run with no write txn open. A document write reserves
// its storage key, runs the callback, then confirms the row in a second
// txn. Reserved keys are invisible to readers but count as taken.

func (s *Store) CreateDocument(_ context.Context, doc *project.Document, upload func(*project.Document) error) (*project.Document, error) {
	cp := *doc
	err := s.reserveKey(doc.StorageKey, func(txn *memdb.Txn) error {
		if _, err := findProject(txn, doc.ProjectID); err != nil {
			return err
		}
		s.documentSeq++
		cp.ID = s.documentSeq
		return nil
	})
	if err != nil {
		return nil, err
	}

	if upload != nil {
		if err := upload(&cp); err != nil {
			s.releaseKey(cp.StorageKey)
			return nil, err
		}
	}

	err = s.confirmKey(cp.StorageKey, func(txn *memdb.Txn) error {
		if _, err := findProject(txn, cp.ProjectID); err != nil {
			return err
		}
		if err := txn.Insert(tblDocuments, &cp); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := cp
	return &out, nil
}

// reserveKey claims key after check passes, in one short write txn.
func (s *Store) reserveKey(key string, check func(*memdb.Txn) error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := keyFree(txn, key); err != nil {
		return err
	}
	if err := check(txn); err != nil {
		return err
	}
	if err := txn.Insert(tblReservations, &reservation{StorageKey: key}); err != nil {
		return fmt.Errorf("reserve storage key: %w", err)
	}
	txn.Commit()
	return nil
}

// confirmKey drops the reservation and applies the row change atomically.
// If apply fails the reservation is released and nothing is written.
func (s *Store) confirmKey(key string, apply func(*memdb.Txn) error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tblReservations, "id", key); err != nil {
		return fmt.Errorf("confirm storage key: %w", err)
	}
	if err := apply(txn); err != nil {
		txn.Abort()
		s.releaseKey(key)
		return err
	}
	txn.Commit()
	return nil
}

func (s *Store) releaseKey(key string) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tblReservations, "id", key); err == nil {
		txn.Commit()
	}
}

func keyFree(txn *memdb.Txn, key string) error {
	for _, tbl := range []string{tblDocuments, tblReservations} {
		index := "storage_key"
		if tbl == tblReservations {
			index = "id"
		}
		raw, err := txn.First(tbl, index, key)
		if err != nil {
			return fmt.Errorf("check storage key: %w", err)
		}
		if raw != nil {
			return project.ErrKeyExists
		}
	}
	return nil
}

func findDocument(txn *memdb.Txn, id int64) (*project.Document, error) {
	raw, err := txn.First(tblDocuments, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find document %d: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find document %d: %w", id, project.ErrDocumentNotFound)
	}
	cp := *raw.(*project.Document)
	return &cp, nil
}

func (s *Store) FindDocument(_ context.Context, id int64) (*project.Document, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	return findDocument(txn, id)
}

func listDocuments(txn *memdb.Txn, projectID int64) ([]*project.Document, error) {
	iter, err := txn.Get(tblDocuments, "project_id", projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %d: %w", projectID, err)
	}
	var out []*project.Document
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		cp := *raw.(*project.Document)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDocuments(_ context.Context, projectID int64) ([]*project.Document, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	return listDocuments(txn, projectID)
}

func (s *Store) ReplaceDocument(_ context.Context, doc *project.Document, upload func(*project.Document) error) (*project.Document, error) {
	err := s.reserveKey(doc.StorageKey, func(txn *memdb.Txn) error {
		_, err := findDocument(txn, doc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	cp := *doc
	if upload != nil {
		if err := upload(&cp); err != nil {
			s.releaseKey(cp.StorageKey)
			return nil, err
		}
	}

	err = s.confirmKey(cp.StorageKey, func(txn *memdb.Txn) error {
		if _, err := findDocument(txn, cp.ID); err != nil {
			return err
		}
		if err := txn.Insert(tblDocuments, &cp); err != nil {
			return fmt.Errorf("replace document %d: %w", cp.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := cp
	return &out, nil
}

// DeleteDocument removes the row only after remove succeeds.
func (s *Store) DeleteDocument(ctx context.Context, id int64, remove func(*project.Document) error) error {
	doc, err := s.FindDocument(ctx, id)
	if err != nil {
		return err
	}
	if remove != nil {
		if err := remove(doc); err != nil {
			return err
		}
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tblDocuments, "id", id); err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	txn.Commit()
	return nil
}

func (s *Store) DocumentKeyExists(_ context.Context, key string) (bool, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	if err := keyFree(txn, key); err != nil {
		if errors.Is(err, project.ErrKeyExists) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (s *Store) FindLogo(_ context.Context, projectID int64) (*project.Logo, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	return findLogo(txn, projectID)
}

func findLogo(txn *memdb.Txn, projectID int64) (*project.Logo, error) {
	raw, err := txn.First(tblLogos, "id", projectID)
	if err != nil {
		return nil, fmt.Errorf("find logo: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find logo of project %d: %w", projectID, project.ErrLogoNotFound)
	}
	cp := *raw.(*project.Logo)
	return &cp, nil
}

// PutLogo uploads with no txn open and records the row afterwards. The
// last upload to confirm wins.
func (s *Store) PutLogo(ctx context.Context, logo *project.Logo, upload func(*project.Logo) error) (*project.Logo, error) {
	if _, err := s.FindProject(ctx, logo.ProjectID); err != nil {
		return nil, err
	}

	cp := *logo
	if upload != nil {
		if err := upload(&cp); err != nil {
			return nil, err
		}
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	p, err := findProject(txn, logo.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := txn.Insert(tblLogos, &cp); err != nil {
		return nil, fmt.Errorf("put logo: %w", err)
	}
	if _, err := touch(txn, p, logo.UploadedBy, logo.UploadedOn); err != nil {
		return nil, err
	}
	txn.Commit()

	out := cp
	return &out, nil
}

func (s *Store) DeleteLogo(_ context.Context, projectID int64, by string, at time.Time, remove func(*project.Logo) error) error {
	read := s.db.Txn(false)
	_, err := findProject(read, projectID)
	if err != nil {
		read.Abort()
		return err
	}
	logo, err := findLogo(read, projectID)
	read.Abort()
	if err != nil {
		return err
	}

	if remove != nil {
		if err := remove(logo); err != nil {
			return err
		}
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tblLogos, "id", projectID); err != nil {
		return fmt.Errorf("delete logo: %w", err)
	}
	// A concurrent DeleteProject already removed everything.
	p, err := findProject(txn, projectID)
	if errors.Is(err, project.ErrProjectNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := touch(txn, p, by, at); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
