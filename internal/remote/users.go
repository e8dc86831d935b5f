package remote

import (
	"context"
	"net/http"
)

// CreateUser creates an account and returns it as the remote reports it.
func (c *Client) CreateUser(ctx context.Context, opts CreateUserOptions) (*User, error) {
	var created User
	if err := c.do(ctx, "create_user", http.MethodPost, "admin/users", opts, &created); err != nil {
		return nil, err
	}
	if created.ID != 0 && created.AvatarURL != "" {
		return &created, nil
	}
	// Older servers answer with a sparse document; re-read to normalise it.
	return c.GetUser(ctx, opts.Username)
}

// GetUser fetches an account by login.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.do(ctx, "get_user", http.MethodGet, endpoint("users", username), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers pages through all accounts.
func (c *Client) ListUsers(ctx context.Context, opts ListUsersOptions) ([]User, error) {
	path, err := withQuery("admin/users", opts)
	if err != nil {
		return nil, &Error{Op: "list_users", Err: err}
	}
	var users []User
	if err := c.do(ctx, "list_users", http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// RenameUser changes an account login.
func (c *Client) RenameUser(ctx context.Context, oldName, newName string) error {
	return c.do(ctx, "rename_user", http.MethodPost, endpoint("admin", "users", oldName, "rename"),
		renameUserOptions{NewUsername: newName}, nil)
}

// EditUser applies a partial profile update and returns the updated account.
// A 422 answer means the remote had nothing to change and yields ErrNoChanges.
// A successful answer with an empty body yields a nil user and no error.
func (c *Client) EditUser(ctx context.Context, username string, opts EditUserOptions) (*User, error) {
	if opts.Empty() {
		return nil, ErrNoChanges
	}
	var updated User
	err := c.do(ctx, "edit_user", http.MethodPatch, endpoint("admin", "users", username), opts, &updated)
	switch {
	case IsUnprocessable(err):
		return nil, ErrNoChanges
	case err != nil:
		return nil, err
	case updated.ID == 0:
		return nil, nil
	default:
		return &updated, nil
	}
}

// ChangePassword sets the account password without forcing a change on next login.
func (c *Client) ChangePassword(ctx context.Context, username, password string) error {
	return c.do(ctx, "change_password", http.MethodPatch, endpoint("admin", "users", username),
		changePasswordOptions{Password: password, LoginName: username}, nil)
}

// DeleteUser removes an account. Purge also removes everything it owns.
// An account that is already gone is not an error.
func (c *Client) DeleteUser(ctx context.Context, username string, purge bool) error {
	path := endpoint("admin", "users", username)
	if purge {
		path += "?purge=true"
	}
	err := c.do(ctx, "delete_user", http.MethodDelete, path, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// GetOrg fetches an organization by name.
func (c *Client) GetOrg(ctx context.Context, name string) (*Organization, error) {
	var org Organization
	if err := c.do(ctx, "get_org", http.MethodGet, endpoint("orgs", name), nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// OwnerKind resolves whether owner is a user or an organization. It returns
// ErrOwnerNotFound when it is neither.
func (c *Client) OwnerKind(ctx context.Context, owner string) (OwnerKind, error) {
	_, err := c.GetUser(ctx, owner)
	if err == nil {
		return OwnerUser, nil
	}
	if !IsNotFound(err) {
		return "", err
	}

	_, err = c.GetOrg(ctx, owner)
	switch {
	case err == nil:
		return OwnerOrganization, nil
	case IsNotFound(err):
		return "", ErrOwnerNotFound
	default:
		return "", err
	}
}

// Version returns the server version string. It needs no particular
// privileges and doubles as a reachability probe.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := c.do(ctx, "version", http.MethodGet, "version", nil, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}
