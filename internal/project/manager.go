package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/blob"
)

// MaxKeyAttempts bounds the storage key collision retry loop.
const MaxKeyAttempts = 5

// Service is the project handler interface used by the HTTP layer.
type Service interface {
	Create(ctx context.Context, name, description, createdBy string) (*View, error)
	Get(ctx context.Context, id int64) (*View, error)
	Exists(ctx context.Context, id int64) error
	List(ctx context.Context, ids []int64) ([]Summary, error)
	Update(ctx context.Context, id int64, upd Update, caller string) (*View, error)
	Delete(ctx context.Context, id int64) error
	GrantAccess(ctx context.Context, id int64, username string) (*AccessGrant, error)

	AddDocuments(ctx context.Context, projectID int64, caller string, files []Upload) ([]*Document, error)
	ListDocuments(ctx context.Context, projectID int64) ([]*Document, error)
	GetDocument(ctx context.Context, id int64) (*Document, error)
	DownloadDocument(ctx context.Context, id int64) (*Download, error)
	ReplaceDocument(ctx context.Context, id int64, caller string, file Upload) (*Document, error)
	DeleteDocument(ctx context.Context, id int64) error

	UploadLogo(ctx context.Context, projectID int64, caller string, file Upload) (*Logo, error)
	DownloadLogo(ctx context.Context, projectID int64) (*Download, error)
	DeleteLogo(ctx context.Context, projectID int64, caller string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithKeyFunc replaces the random component of document storage keys.
func WithKeyFunc(fn func() string) Option {
	return func(m *Manager) { m.newKey = fn }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager implements Service over a Store and a blob.Store.
type Manager struct {
	store   Store
	blobs   blob.Store
	buckets blob.Buckets
	log     logrus.FieldLogger
	now     func() time.Time
	newKey  func() string
}

var _ Service = (*Manager)(nil)

// NewManager creates a project manager
func NewManager(store Store, blobs blob.Store, buckets blob.Buckets, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		blobs:   blobs,
		buckets: buckets,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		newKey:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) stamp() time.Time {
	return m.now().UTC()
}

// Create stores a new project. The creator's owner grant is committed
// before Create returns.
func (m *Manager) Create(ctx context.Context, name, description, createdBy string) (*View, error) {
	if err := validateProjectFields(&name, &description); err != nil {
		return nil, err
	}

	p, err := m.store.CreateProject(ctx, &Project{
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedOn:   m.stamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	m.log.WithFields(logrus.Fields{"project_id": p.ID, "owner": createdBy}).Info("project created")
	return m.view(ctx, p)
}

// Exists returns ErrProjectNotFound for unknown ids.
func (m *Manager) Exists(ctx context.Context, id int64) error {
	_, err := m.store.FindProject(ctx, id)
	return err
}

func (m *Manager) Get(ctx context.Context, id int64) (*View, error) {
	p, err := m.store.FindProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.view(ctx, p)
}

func (m *Manager) view(ctx context.Context, p *Project) (*View, error) {
	docs, err := m.store.ListDocuments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	contributors, err := m.store.Contributors(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}

	v := &View{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		CreatedBy:    p.CreatedBy,
		CreatedOn:    p.CreatedOn,
		UpdatedBy:    p.UpdatedBy,
		UpdatedOn:    p.UpdatedOn,
		Documents:    make([]DocumentRef, 0, len(docs)),
		Contributors: contributors,
	}
	if v.Contributors == nil {
		v.Contributors = []string{}
	}
	for _, d := range docs {
		v.Documents = append(v.Documents, DocumentRef{ID: d.ID, Name: d.Name})
	}

	logo, err := m.store.FindLogo(ctx, p.ID)
	switch {
	case err == nil:
		v.Logo = &logo.Name
	case !errors.Is(err, ErrLogoNotFound):
		return nil, fmt.Errorf("find logo: %w", err)
	}
	return v, nil
}

// List returns summaries of the given projects, ordered by id.
func (m *Manager) List(ctx context.Context, ids []int64) ([]Summary, error) {
	out := make([]Summary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	projects, err := m.store.ListProjects(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		out = append(out, Summary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Owner:       p.CreatedBy,
			CreatedOn:   p.CreatedOn,
		})
	}
	return out, nil
}

// Update applies the non-nil fields and stamps updated_by/updated_on.
func (m *Manager) Update(ctx context.Context, id int64, upd Update, caller string) (*View, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: no project properties were specified in the request body", ErrValidation)
	}
	if err := validateProjectFields(upd.Name, upd.Description); err != nil {
		return nil, err
	}

	p, err := m.store.UpdateProject(ctx, id, upd, caller, m.stamp())
	if err != nil {
		return nil, err
	}
	return m.view(ctx, p)
}

// Delete removes the project. Document and logo blobs are deleted first;
// any blob failure leaves the metadata in place.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	err := m.store.DeleteProject(ctx, id, func(ctx context.Context, docs []*Document, logo *Logo) error {
		for _, d := range docs {
			if err := m.blobs.Delete(ctx, m.buckets.Documents, d.StorageKey); err != nil {
				return fmt.Errorf("delete document %d blob: %w", d.ID, err)
			}
		}
		if logo != nil {
			return m.deleteLogoBlobs(ctx, logo)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.log.WithField("project_id", id).Info("project deleted")
	return nil
}

// GrantAccess gives an existing user participant access.
func (m *Manager) GrantAccess(ctx context.Context, id int64, username string) (*AccessGrant, error) {
	if _, err := m.store.FindProject(ctx, id); err != nil {
		return nil, err
	}
	if _, err := m.store.FindUser(ctx, username); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, err
	}
	return m.store.Grant(ctx, id, username, RoleParticipant)
}

func validateProjectFields(name, description *string) error {
	if name != nil {
		*name = strings.TrimSpace(*name)
		if *name == "" {
			return fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		if len(*name) > 100 {
			return fmt.Errorf("%w: name must be at most 100 characters", ErrValidation)
		}
	}
	if description != nil && len(*description) > 500 {
		return fmt.Errorf("%w: description must be at most 500 characters", ErrValidation)
	}
	return nil
}
