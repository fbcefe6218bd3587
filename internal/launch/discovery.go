package launch

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// NotFoundError reports a program that is not present at any searched location.
type NotFoundError struct {
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("program not found (searched: %s)", strings.Join(e.Searched, ", "))
}

// Resolve locates the program for c. Paths containing a separator are used
// as given; bare names are looked up on PATH, then each fallback in turn.
func (c Command) Resolve() (string, error) {
	if c.Path == "" {
		return "", &NotFoundError{}
	}

	if strings.ContainsRune(c.Path, filepath.Separator) || strings.ContainsRune(c.Path, '/') {
		path := c.Path
		if !filepath.IsAbs(path) && c.Dir != "" {
			path = filepath.Join(c.Dir, path)
		}

		if _, err := os.Stat(path); err != nil {
			return "", &NotFoundError{Searched: []string{path}}
		}

		// exec evaluates relative paths against Dir, so hand back an absolute one.
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}

		return path, nil
	}

	searched := make([]string, 0, 1+len(c.Fallbacks))

	for _, name := range append([]string{c.Path}, c.Fallbacks...) {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}

		searched = append(searched, name)
	}

	return "", &NotFoundError{Searched: searched}
}
