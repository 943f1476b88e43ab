// Package project holds the project domain: projects, access grants,
// documents and logos, plus the Manager that coordinates metadata stores
// with blob storage.
package project

import (
	"errors"
	"fmt"
	"time"
)

// Role is a user's privilege tier on a project.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleParticipant Role = "participant"
)

// Validate checks the role is one of the two known tiers.
func (r Role) Validate() error {
	switch r {
	case RoleOwner, RoleParticipant:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, string(r))
	}
}

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrLogoNotFound     = errors.New("logo not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrGrantNotFound    = errors.New("access grant not found")
	ErrGrantExists      = errors.New("access grant already exists")
	ErrKeyExists        = errors.New("storage key already in use")
	ErrValidation       = errors.New("validation failed")
	ErrUnsupportedLogo  = errors.New("logo must be a .png or .jpeg file")
)

// Project is the stored project row.
type Project struct {
	ID          int64
	Name        string
	Description string
	CreatedBy   string
	CreatedOn   time.Time
	UpdatedBy   *string
	UpdatedOn   *time.Time
}

// AccessGrant is one row of the access ledger.
type AccessGrant struct {
	ProjectID int64  `json:"project_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	IsValid   bool   `json:"-"`
}

// Document is a file attached to a project. StorageKey never leaves the server.
type Document struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Name        string    `json:"name"`
	AddedBy     string    `json:"added_by"`
	AddedOn     time.Time `json:"added_on"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"-"`
}

// Logo is a project's single logo image.
type Logo struct {
	ProjectID  int64     `json:"project_id"`
	Name       string    `json:"logo_name"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedOn time.Time `json:"uploaded_on"`
	StorageKey string    `json:"-"`
}

// DocumentRef is the short form embedded in a project view.
type DocumentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// View is the full project representation returned by the API.
type View struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	CreatedBy    string        `json:"created_by"`
	CreatedOn    time.Time     `json:"created_on"`
	UpdatedBy    *string       `json:"updated_by"`
	UpdatedOn    *time.Time    `json:"updated_on"`
	Logo         *string       `json:"logo"`
	Documents    []DocumentRef `json:"documents"`
	Contributors []string      `json:"contributors"`
}

// Summary is the list form returned by GET /projects.
type Summary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	CreatedOn   time.Time `json:"created_on"`
}

// Update carries the optional fields of a project update.
type Update struct {
	Name        *string
	Description *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Name == nil && u.Description == nil
}

// Upload is one file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Download is file content plus what is needed to serve it.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}
