package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

const defaultContentType = "application/octet-stream"

// AddDocuments stores each file under a fresh key. Files are processed
// in order; the first failure stops the batch and is returned together
// with the documents already stored.
func (m *Manager) AddDocuments(ctx context.Context, projectID int64, caller string, files []Upload) ([]*Document, error) {
	if _, err := m.store.FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrValidation)
	}

	out := make([]*Document, 0, len(files))
	for _, f := range files {
		doc, err := m.addDocument(ctx, projectID, caller, f)
		if err != nil {
			return out, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (m *Manager) addDocument(ctx context.Context, projectID int64, caller string, f Upload) (*Document, error) {
	name := NormalizeFilename(f.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: file name must not be empty", ErrValidation)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	doc := &Document{
		ProjectID:   projectID,
		Name:        name,
		AddedBy:     caller,
		AddedOn:     m.stamp(),
		ContentType: contentType,
	}
	err := m.withFreshKey(ctx, projectID, name, func(key string) error {
		doc.StorageKey = key
		created, err := m.store.CreateDocument(ctx, doc, func(d *Document) error {
			return m.blobs.Put(ctx, m.buckets.Documents, d.StorageKey, f.Data, d.ContentType)
		})
		if err != nil {
			return err
		}
		doc = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"project_id": projectID, "document_id": doc.ID}).Info("document added")
	return doc, nil
}

// withFreshKey generates storage keys until one is free and fn accepts
// it. Only key collisions are retried.
func (m *Manager) withFreshKey(ctx context.Context, projectID int64, name string, fn func(key string) error) error {
	for attempt := 1; attempt <= MaxKeyAttempts; attempt++ {
		key := documentKey(projectID, m.newKey(), name)

		taken, err := m.store.DocumentKeyExists(ctx, key)
		if err != nil {
			return fmt.Errorf("check storage key: %w", err)
		}
		if !taken {
			err = fn(key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrKeyExists) {
				return err
			}
		}
		m.log.WithFields(logrus.Fields{"project_id": projectID, "attempt": attempt}).Warn("storage key collision")
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrKeyExists, MaxKeyAttempts)
}

func (m *Manager) ListDocuments(ctx context.Context, projectID int64) ([]*Document, error) {
	if _, err := m.store.FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	docs, err := m.store.ListDocuments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*Document{}
	}
	return docs, nil
}

func (m *Manager) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return m.store.FindDocument(ctx, id)
}

func (m *Manager) DownloadDocument(ctx context.Context, id int64) (*Download, error) {
	doc, err := m.store.FindDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := m.blobs.Get(ctx, m.buckets.Documents, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download document %d: %w", id, err)
	}
	return &Download{Name: doc.Name, ContentType: doc.ContentType, Data: data}, nil
}

// ReplaceDocument swaps the file behind an existing document id. The new
// content goes under a fresh key; the old object is removed once the
// row points at the new one.
func (m *Manager) ReplaceDocument(ctx context.Context, id int64, caller string, f Upload) (*Document, error) {
	current, err := m.store.FindDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	name := NormalizeFilename(f.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: file name must not be empty", ErrValidation)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	next := *current
	next.Name = name
	next.ContentType = contentType
	next.AddedBy = caller
	next.AddedOn = m.stamp()

	var updated *Document
	err = m.withFreshKey(ctx, current.ProjectID, name, func(key string) error {
		next.StorageKey = key
		doc, err := m.store.ReplaceDocument(ctx, &next, func(d *Document) error {
			return m.blobs.Put(ctx, m.buckets.Documents, d.StorageKey, f.Data, d.ContentType)
		})
		if err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.blobs.Delete(ctx, m.buckets.Documents, current.StorageKey); err != nil {
		m.log.WithError(err).WithField("document_id", id).Warn("failed to delete replaced document blob")
	}
	return updated, nil
}

// DeleteDocument removes the blob first and the row only if that worked.
func (m *Manager) DeleteDocument(ctx context.Context, id int64) error {
	return m.store.DeleteDocument(ctx, id, func(d *Document) error {
		if err := m.blobs.Delete(ctx, m.buckets.Documents, d.StorageKey); err != nil {
			return fmt.Errorf("delete document %d blob: %w", d.ID, err)
		}
		return nil
	})
}
