package auth

import (
	"bufio"
	"os"
	"slices"
	"strconv"
	"strings"
)

// scanEntries calls f with the fields of every non-comment line of pathname until f returns true.
func scanEntries(pathname string, f func(fields []string) bool) error {
	file, err := os.Open(pathname)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		if f(strings.Split(line, ":")) {
			return nil
		}
	}
	return scanner.Err()
}

// parsePasswd parses the fields of a passwd line, returning nil for a malformed line.
func parsePasswd(fields []string) *Account {
	if len(fields) != 7 || fields[0] == "" {
		return nil
	}
	uid, err := strconv.Atoi(fields[2])
	if err != nil || uid < 0 {
		return nil
	}
	gid, err := strconv.Atoi(fields[3])
	if err != nil || gid < 0 {
		return nil
	}
	return &Account{
		Username: fields[0],
		Password: fields[1],
		Uid:      uid,
		Gid:      gid,
		Home:     fields[5],
		Shell:    fields[6],
	}
}

func lookupPasswd(pathname, name string) (*Account, error) {
	var a *Account
	err := scanEntries(pathname, func(fields []string) bool {
		if len(fields) > 0 && fields[0] == name {
			a = parsePasswd(fields)
		}
		return a != nil
	})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrUnknownUser
	}
	return a, nil
}

// lookupShadow returns the stored hash of name and whether an entry exists.
func lookupShadow(pathname, name string) (hash string, ok bool, err error) {
	err = scanEntries(pathname, func(fields []string) bool {
		if len(fields) < 2 || fields[0] != name {
			return false
		}
		hash, ok = fields[1], true
		return true
	})
	return
}

type group struct {
	name    string
	gid     int
	members []string
}

func (g *group) hasMember(name string) bool { return slices.Contains(g.members, name) }

// parseGroup parses the fields of a group line, returning nil for a malformed line.
func parseGroup(fields []string) *group {
	if len(fields) != 4 || fields[0] == "" {
		return nil
	}
	gid, err := strconv.Atoi(fields[2])
	if err != nil || gid < 0 {
		return nil
	}
	g := &group{name: fields[0], gid: gid}
	if fields[3] != "" {
		g.members = strings.Split(fields[3], ",")
	}
	return g
}

func readGroups(pathname string) ([]*group, error) {
	var groups []*group
	err := scanEntries(pathname, func(fields []string) bool {
		if g := parseGroup(fields); g != nil {
			groups = append(groups, g)
		}
		return false
	})
	return groups, err
}

func lookupGroupByGid(pathname string, gid int) (*group, error) {
	var g *group
	err := scanEntries(pathname, func(fields []string) bool {
		if e := parseGroup(fields); e != nil && e.gid == gid {
			g = e
		}
		return g != nil
	})
	return g, err
}
