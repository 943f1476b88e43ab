package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

// ProjectInput is the body of project create and update calls. Nil
// fields are left out of an update.
type ProjectInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ShareResult is returned after an invite email has been sent.
type ShareResult struct {
	MessageID string `json:"message_id"`
	JoinToken string `json:"join_token"`
}

func (ac *AuthenticatedClient) ListProjects() ([]project.Summary, error) {
	var out []project.Summary
	if err := ac.doJSON(http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return out, nil
}

func (ac *AuthenticatedClient) CreateProject(name, description string) (*project.View, error) {
	body := map[string]string{"name": name, "description": description}
	var view project.View
	if err := ac.doJSON(http.MethodPost, "/projects", body, &view); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &view, nil
}

func (ac *AuthenticatedClient) GetProject(id int64) (*project.View, error) {
	var view project.View
	if err := ac.doJSON(http.MethodGet, fmt.Sprintf("/project/%d/info", id), nil, &view); err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	return &view, nil
}

func (ac *AuthenticatedClient) UpdateProject(id int64, in ProjectInput) (*project.View, error) {
	var view project.View
	if err := ac.doJSON(http.MethodPut, fmt.Sprintf("/project/%d/info", id), in, &view); err != nil {
		return nil, fmt.Errorf("failed to update project %d: %w", id, err)
	}
	return &view, nil
}

// DeleteProject removes a project. Only its owner may do this.
func (ac *AuthenticatedClient) DeleteProject(id int64) error {
	if err := ac.doNoContent(http.MethodDelete, fmt.Sprintf("/project/%d", id)); err != nil {
		return fmt.Errorf("failed to delete project %d: %w", id, err)
	}
	return nil
}

// GrantAccess makes username a participant of the project directly.
func (ac *AuthenticatedClient) GrantAccess(id int64, username string) (*project.AccessGrant, error) {
	var grant project.AccessGrant
	body := map[string]string{"name": username}
	if err := ac.doJSON(http.MethodPost, fmt.Sprintf("/project/%d/invite", id), body, &grant); err != nil {
		return nil, fmt.Errorf("failed to invite %s: %w", username, err)
	}
	return &grant, nil
}

// Share emails a join link for the project to the user with that address.
func (ac *AuthenticatedClient) Share(id int64, email string) (*ShareResult, error) {
	path := fmt.Sprintf("/project/%d/share?email=%s", id, url.QueryEscape(email))
	var out ShareResult
	if err := ac.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to share project %d: %w", id, err)
	}
	return &out, nil
}

// Join redeems a join token. The endpoint is public, so no session is
// needed.
func (c *Client) Join(projectID int64, token string) (*project.AccessGrant, error) {
	q := url.Values{
		"project_id": {fmt.Sprint(projectID)},
		"join_token": {token},
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/join?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.retryableRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var grant project.AccessGrant
	if err := decodeResponse(resp, &grant); err != nil {
		return nil, fmt.Errorf("failed to join project %d: %w", projectID, err)
	}
	return &grant, nil
}

// Join redeems a join token with the client's server.
func (ac *AuthenticatedClient) Join(projectID int64, token string) (*project.AccessGrant, error) {
	return ac.client.Join(projectID, token)
}
