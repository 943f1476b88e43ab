package project

import (
	"context"
	"time"

	"github.com/anavel898/project-management-dashboard/internal/auth"
)

// BlobRemover deletes the blobs that belong to rows about to be removed.
// Returning an error aborts the metadata delete.
type BlobRemover func(ctx context.Context, docs []*Document, logo *Logo) error

// ProjectStore persists project rows.
type ProjectStore interface {
	// CreateProject assigns the ID and writes the owner grant in the same
	// transaction.
	CreateProject(ctx context.Context, p *Project) (*Project, error)
	FindProject(ctx context.Context, id int64) (*Project, error)
	// ListProjects returns the projects with the given ids, ordered by id.
	// Unknown ids are skipped.
	ListProjects(ctx context.Context, ids []int64) ([]*Project, error)
	UpdateProject(ctx context.Context, id int64, upd Update, by string, at time.Time) (*Project, error)
	// DeleteProject removes the project with its grants, documents and logo.
	// remove runs before any row is deleted.
	DeleteProject(ctx context.Context, id int64, remove BlobRemover) error
}

// AccessStore is the project access ledger.
type AccessStore interface {
	// Grant adds a grant and fails with ErrGrantExists when the
	// (project, username) pair is already present.
	Grant(ctx context.Context, projectID int64, username string, role Role) (*AccessGrant, error)
	FindGrant(ctx context.Context, projectID int64, username string) (*AccessGrant, error)
	// PrivilegesFor returns the ids of valid grants split by role, ascending.
	PrivilegesFor(ctx context.Context, username string) (owned, participating []int64, err error)
	// Contributors lists every grantee of the project, owner first.
	Contributors(ctx context.Context, projectID int64) ([]string, error)
}

// DocumentStore persists document metadata. An upload callback runs after
// the storage key is reserved and before the row becomes visible; an
// upload error leaves no row behind. While a callback runs the store holds
// no lock that blocks writes to other rows.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document, upload func(*Document) error) (*Document, error)
	FindDocument(ctx context.Context, id int64) (*Document, error)
	ListDocuments(ctx context.Context, projectID int64) ([]*Document, error)
	ReplaceDocument(ctx context.Context, doc *Document, upload func(*Document) error) (*Document, error)
	DeleteDocument(ctx context.Context, id int64, remove func(*Document) error) error
	DocumentKeyExists(ctx context.Context, key string) (bool, error)
}

// LogoStore persists the single logo of a project.
type LogoStore interface {
	FindLogo(ctx context.Context, projectID int64) (*Logo, error)
	// PutLogo inserts or replaces the logo and stamps the project as
	// updated by the uploader.
	PutLogo(ctx context.Context, logo *Logo, upload func(*Logo) error) (*Logo, error)
	// DeleteLogo removes the logo row after remove succeeds and stamps the
	// project as updated.
	DeleteLogo(ctx context.Context, projectID int64, by string, at time.Time, remove func(*Logo) error) error
}

// Store is everything a storage backend provides. The postgres and
// memory backends both implement it.
type Store interface {
	auth.UserStore
	ProjectStore
	AccessStore
	DocumentStore
	LogoStore
	Close() error
}
