package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/anavel898/project-management-dashboard/internal/blob"
)

// UploadLogo stores a png or jpeg in the raw logo bucket and records it
// as the project's logo, replacing any previous one.
func (m *Manager) UploadLogo(ctx context.Context, projectID int64, caller string, f Upload) (*Logo, error) {
	if _, err := m.store.FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	name := NormalizeFilename(f.Name)
	contentType, ok := logoContentType(name, f.ContentType)
	if !ok || name == "" {
		return nil, ErrUnsupportedLogo
	}

	previous, err := m.store.FindLogo(ctx, projectID)
	if err != nil && !errors.Is(err, ErrLogoNotFound) {
		return nil, fmt.Errorf("find logo: %w", err)
	}

	logo, err := m.store.PutLogo(ctx, &Logo{
		ProjectID:  projectID,
		Name:       name,
		UploadedBy: caller,
		UploadedOn: m.stamp(),
		StorageKey: logoKey(projectID, name),
	}, func(l *Logo) error {
		return m.blobs.Put(ctx, m.buckets.RawLogos, l.StorageKey, f.Data, contentType)
	})
	if err != nil {
		return nil, err
	}

	if previous != nil && previous.StorageKey != logo.StorageKey {
		if err := m.deleteLogoBlobs(ctx, previous); err != nil {
			m.log.WithError(err).WithField("project_id", projectID).Warn("failed to delete replaced logo")
		}
	}
	return logo, nil
}

// DownloadLogo reads the resized logo, falling back to the raw upload
// while the resize has not produced an object yet.
func (m *Manager) DownloadLogo(ctx context.Context, projectID int64) (*Download, error) {
	if _, err := m.store.FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	logo, err := m.store.FindLogo(ctx, projectID)
	if err != nil {
		return nil, err
	}

	data, err := m.blobs.Get(ctx, m.buckets.ProcessedLogos, logo.StorageKey)
	if errors.Is(err, blob.ErrNotFound) {
		data, err = m.blobs.Get(ctx, m.buckets.RawLogos, logo.StorageKey)
	}
	if err != nil {
		return nil, fmt.Errorf("download logo for project %d: %w", projectID, err)
	}
	return &Download{Name: logo.Name, ContentType: defaultContentType, Data: data}, nil
}

// DeleteLogo removes both logo objects, then the logo row.
func (m *Manager) DeleteLogo(ctx context.Context, projectID int64, caller string) error {
	if _, err := m.store.FindProject(ctx, projectID); err != nil {
		return err
	}
	return m.store.DeleteLogo(ctx, projectID, caller, m.stamp(), func(l *Logo) error {
		return m.deleteLogoBlobs(ctx, l)
	})
}

func (m *Manager) deleteLogoBlobs(ctx context.Context, l *Logo) error {
	for _, bucket := range []string{m.buckets.RawLogos, m.buckets.ProcessedLogos} {
		if bucket == "" {
			continue
		}
		if err := m.blobs.Delete(ctx, bucket, l.StorageKey); err != nil {
			return fmt.Errorf("delete logo blob: %w", err)
		}
	}
	return nil
}
