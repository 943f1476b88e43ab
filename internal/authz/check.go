package authz

import "errors"

var (
	ErrOwnerOnly = errors.New("only project owners can perform this action")
	ErrNoAccess  = errors.New("no access to this project")
)

// Check verifies privilege on an existing project. Existence must be
// checked by the caller first so unknown projects surface as not found.
func Check(projectID int64, owned, participating []int64, requireOwner bool) error {
	if contains(owned, projectID) {
		return nil
	}
	if requireOwner {
		return ErrOwnerOnly
	}
	if contains(participating, projectID) {
		return nil
	}
	return ErrNoAccess
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
