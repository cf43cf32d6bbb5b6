// Package auth resolves local accounts and verifies their credentials.
package auth

import (
	"bytes"
	"errors"
	"os"
	"strconv"

	"hakurei.app/xdm/internal/message"
)

// ErrUnknownUser is returned by [DB.Lookup] if no account has the requested name.
var ErrUnknownUser = errors.New("unknown user")

// Account is a read-only account record.
type Account struct {
	Username string
	Uid, Gid int
	// Group is the name of the primary group, empty if it has no group entry.
	Group string
	Home  string
	Shell string

	// Password is the stored credential representation. It must never be logged.
	Password string
}

func (a *Account) String() string {
	return a.Username + " (uid " + strconv.Itoa(a.Uid) + ", gid " + strconv.Itoa(a.Gid) + ")"
}

// Outcome is the result of an authentication attempt.
type Outcome int

const (
	// OK means the credential matched.
	OK Outcome = iota
	// InvalidUser means no account has the requested name.
	InvalidUser
	// BadPassword means the credential did not match or the account is locked.
	BadPassword
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case InvalidUser:
		return "invalid user"
	case BadPassword:
		return "bad password"
	default:
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

// DB is the account database made up of passwd, shadow and group files.
type DB struct {
	Passwd, Shadow, Group string

	msg message.Msg
}

// New returns the account database backed by the named files.
// An empty shadow or group pathname disables that file.
func New(passwd, shadow, group string, msg message.Msg) *DB {
	if msg == nil {
		msg = message.New(nil)
	}
	return &DB{passwd, shadow, group, msg}
}

// Lookup resolves name to its passwd entry and primary group name.
func (db *DB) Lookup(name string) (*Account, error) {
	a, err := lookupPasswd(db.Passwd, name)
	if err != nil {
		return nil, err
	}
	if db.Group != "" {
		if g, err := lookupGroupByGid(db.Group, a.Gid); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		} else if g != nil {
			a.Group = g.name
		}
	}
	return a, nil
}

// Groups returns the supplementary group list of name, gid first and without duplicates.
func (db *DB) Groups(name string, gid int) ([]int, error) {
	groups := []int{gid}
	if db.Group == "" {
		return groups, nil
	}
	entries, err := readGroups(db.Group)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return groups, nil
		}
		return nil, err
	}

	seen := map[int]bool{gid: true}
	for _, g := range entries {
		if seen[g.gid] || !g.hasMember(name) {
			continue
		}
		seen[g.gid] = true
		groups = append(groups, g.gid)
	}
	return groups, nil
}

// Authenticate verifies password against the stored credential of username.
// The account is returned with InvalidUser only as nil. A non-nil error means the database could not be read.
func (db *DB) Authenticate(username, password []byte) (*Account, Outcome, error) {
	if len(username) == 0 || bytes.ContainsAny(username, ":\n") {
		return nil, InvalidUser, nil
	}
	name := string(username)

	a, err := db.Lookup(name)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			return nil, InvalidUser, nil
		}
		return nil, InvalidUser, err
	}

	if db.Shadow != "" {
		if hash, ok, err := lookupShadow(db.Shadow, name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, InvalidUser, err
		} else if ok {
			a.Password = hash
		}
	}

	if a.Password == "" {
		db.msg.Verbosef("account %s has no password", name)
		return a, OK, nil
	}
	if err = verify(a.Password, password); err != nil {
		db.msg.Verbosef("cannot authenticate %s: %v", name, err)
		return a, BadPassword, nil
	}
	return a, OK, nil
}
