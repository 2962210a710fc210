package passthrough

import (
	"fmt"
	"path"
	"sort"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
)

// Claims records which source owns each output destination. A build uses a
// single Claims across copies, bundles and pages so collisions are found
// before anything is written.
type Claims struct {
	owners map[string]string
	// dirs maps every parent directory of a claimed file to that file.
	dirs map[string]string
}

// NewClaims creates an empty claim table.
func NewClaims() *Claims {
	return &Claims{
		owners: make(map[string]string),
		dirs:   make(map[string]string),
	}
}

// Claim records that source produces destination. It reports false when the
// same source already claimed it, and a configuration error when a different
// source did. A destination that would need a claimed file as a directory,
// or that is itself the directory of a claimed file, also collides.
func (c *Claims) Claim(destination, source string) (bool, error) {
	if owner, ok := c.owners[destination]; ok {
		if owner == source {
			return false, nil
		}
		return false, collision(destination,
			fmt.Sprintf("destination claimed by both %s and %s", owner, source))
	}
	if file, ok := c.dirs[destination]; ok {
		return false, collision(destination,
			fmt.Sprintf("%s from %s is a directory holding %s from %s",
				destination, source, file, c.owners[file]))
	}
	parents := ancestors(destination)
	for _, dir := range parents {
		if owner, ok := c.owners[dir]; ok {
			return false, collision(destination,
				fmt.Sprintf("%s from %s needs %s as a directory, but %s writes it as a file",
					destination, source, dir, owner))
		}
	}
	c.owners[destination] = source
	for _, dir := range parents {
		if _, ok := c.dirs[dir]; !ok {
			c.dirs[dir] = destination
		}
	}
	return true, nil
}

func collision(destination, msg string) error {
	return siteerrors.NewConfigError(siteerrors.ErrCodeCollision, msg).WithPath(destination)
}

// ancestors lists the parent directories of a slash separated destination,
// nearest first.
func ancestors(destination string) []string {
	var out []string
	for dir := path.Dir(destination); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		out = append(out, dir)
	}
	return out
}

// Destinations lists every claimed destination, sorted.
func (c *Claims) Destinations() []string {
	out := make([]string, 0, len(c.owners))
	for d := range c.owners {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
