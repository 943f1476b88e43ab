package memory

import "github.com/hashicorp/go-memdb"

var (
	tblUsers     = "users"
	tblProjects  = "projects"
	tblGrants    = "grants"
	tblDocuments = "documents"
	tblLogos     = "logos"

	// Storage keys of documents whose blob is still being written.
	tblReservations = "reservations"
)

type reservation struct {
	StorageKey string
}

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblUsers: {
			Name: tblUsers,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Username"},
				},
				"email": {
					Name:    "email",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
				},
			},
		},
		tblProjects: {
			Name: tblProjects,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.IntFieldIndex{Field: "ID"},
				},
			},
		},
		tblGrants: {
			Name: tblGrants,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:   "id",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.IntFieldIndex{Field: "ProjectID"},
							&memdb.StringFieldIndex{Field: "Username"},
						},
					},
				},
				"project_id": {
					Name:    "project_id",
					Indexer: &memdb.IntFieldIndex{Field: "ProjectID"},
				},
				"username": {
					Name:    "username",
					Indexer: &memdb.StringFieldIndex{Field: "Username"},
				},
			},
		},
		tblDocuments: {
			Name: tblDocuments,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.IntFieldIndex{Field: "ID"},
				},
				"project_id": {
					Name:    "project_id",
					Indexer: &memdb.IntFieldIndex{Field: "ProjectID"},
				},
				"storage_key": {
					Name:    "storage_key",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "StorageKey"},
				},
			},
		},
		tblReservations: {
			Name: tblReservations,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "StorageKey"},
				},
			},
		},
		tblLogos: {
			Name: tblLogos,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.IntFieldIndex{Field: "ProjectID"},
				},
			},
		},
	},
}
