package library

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Role selects which account table a credential check runs against.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Identity is the outcome of a successful credential check.
type Identity struct {
	ID       int64
	Username string
	Role     Role
}

var emailRe = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// DirectoryService manages admin and client accounts and credential checks.
//
// Passwords are stored and compared in plaintext. That is the contract of
// this single-user desktop tool, not a recommendation; anything exposed over
// a network needs salted hashes instead.
type DirectoryService struct {
	store *Store
}

func NewDirectoryService(store *Store) *DirectoryService {
	return &DirectoryService{store: store}
}

// VerifyCredentials checks an exact username/password match against the
// given role's table and returns the matching identity.
func (d *DirectoryService) VerifyCredentials(role Role, username, password string) (*Identity, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	var (
		id    int64
		query string
	)
	switch role {
	case RoleAdmin:
		query = `SELECT admin_id FROM admin WHERE username=? AND password=?`
	case RoleClient:
		query = `SELECT client_id FROM client WHERE username=? AND password=?`
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	err := d.store.db.Get(&id, query, username, password)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn().Str("role", string(role)).Str("username", username).Msg("login rejected")
		return nil, fmt.Errorf("%w: invalid credentials", ErrAccessDenied)
	}
	if err != nil {
		return nil, err
	}
	return &Identity{ID: id, Username: username, Role: role}, nil
}

// AddClient registers a new client account.
func (d *DirectoryService) AddClient(username, password, email string) (*Client, error) {
	if err := validateAccount(username, password, email); err != nil {
		return nil, err
	}
	res, err := d.store.db.Exec(
		`INSERT INTO client (username, password, email) VALUES (?,?,?)`,
		username, password, email)
	if err != nil {
		return nil, mapConstraintErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Client{ID: id, Username: username, Password: password, Email: email}, nil
}

// EditClient updates a client record. A blank password keeps the stored one;
// treating blank as "clear" could lock an account out of login entirely.
func (d *DirectoryService) EditClient(id int64, username, password, email string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email != "" && !emailRe.MatchString(strings.ToLower(email)) {
		return fmt.Errorf("%w: email %q is not valid", ErrValidation, email)
	}
	var (
		res sql.Result
		err error
	)
	if password == "" {
		res, err = d.store.db.Exec(
			`UPDATE client SET username=?, email=? WHERE client_id=?`, username, email, id)
	} else {
		res, err = d.store.db.Exec(
			`UPDATE client SET username=?, password=?, email=? WHERE client_id=?`,
			username, password, email, id)
	}
	if err != nil {
		return mapConstraintErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: client %d", ErrNotFound, id)
	}
	return nil
}

// RemoveClient deletes a client account. Historical loan rows keep the
// client's username snapshot.
func (d *DirectoryService) RemoveClient(id int64) error {
	res, err := d.store.db.Exec(`DELETE FROM client WHERE client_id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: client %d", ErrNotFound, id)
	}
	return nil
}

// GetClient fetches a single client.
func (d *DirectoryService) GetClient(id int64) (*Client, error) {
	var c Client
	err := d.store.db.Get(&c,
		`SELECT client_id, username, password, email FROM client WHERE client_id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: client %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients returns all client accounts.
func (d *DirectoryService) ListClients() ([]Client, error) {
	var clients []Client
	err := d.store.db.Select(&clients,
		`SELECT client_id, username, password, email FROM client ORDER BY client_id`)
	return clients, err
}

// ChangePassword overwrites a client's password after confirming the new
// value. There is no old-password check; the caller has already
// authenticated the session.
func (d *DirectoryService) ChangePassword(clientID int64, newPassword, confirm string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password must not be empty", ErrValidation)
	}
	if newPassword != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	res, err := d.store.db.Exec(
		`UPDATE client SET password=? WHERE client_id=?`, newPassword, clientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: client %d", ErrNotFound, clientID)
	}
	return nil
}

// AddAdmin registers a new librarian account.
func (d *DirectoryService) AddAdmin(username, password, email string) (*Admin, error) {
	if err := validateAccount(username, password, email); err != nil {
		return nil, err
	}
	res, err := d.store.db.Exec(
		`INSERT INTO admin (username, password, email) VALUES (?,?,?)`,
		username, password, email)
	if err != nil {
		return nil, mapConstraintErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Admin{ID: id, Username: username, Password: password, Email: email}, nil
}

func validateAccount(username, password, email string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	if email != "" && !emailRe.MatchString(strings.ToLower(email)) {
		return fmt.Errorf("%w: email %q is not valid", ErrValidation, email)
	}
	return nil
}
