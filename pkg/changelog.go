package bumpkit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultChangelogPath is where the changelog lives relative to the checkout.
const DefaultChangelogPath = "CHANGELOG.md"

const changelogSeparator = "\n---\n\n"

var (
	changelogCategories = []string{"Added", "Changed", "Fixed"}
	conventionalPrefix  = regexp.MustCompile(`^[A-Za-z]+(?:\([^)]*\))?!?:`)
	changelogHeading    = regexp.MustCompile(`## v(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`)
)

// GenerateChangelog renders a release section from commit subjects:
//
//	## v1.2.4 2024-05-01
//
//	### Added
//
//	- new flag
//
// feat/Added subjects go to Added, fix/Fixed to Fixed, everything else to
// Changed. Empty categories are omitted.
func GenerateChangelog(commits []string, version string, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## v%s %s\n\n", version, date.Format("2006-01-02"))

	entries := map[string][]string{}
	for _, subject := range commits {
		subject = strings.TrimSpace(subject)
		if subject == "" {
			continue
		}
		message := subject
		if loc := conventionalPrefix.FindStringIndex(subject); loc != nil {
			message = strings.TrimSpace(subject[loc[1]:])
		}
		category := "Changed"
		switch {
		case strings.HasPrefix(subject, "feat"), strings.HasPrefix(subject, "Added"):
			category = "Added"
		case strings.HasPrefix(subject, "fix"), strings.HasPrefix(subject, "Fixed"):
			category = "Fixed"
		}
		entries[category] = append(entries[category], "- "+message)
	}

	for _, category := range changelogCategories {
		if len(entries[category]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", category)
		b.WriteString(strings.Join(entries[category], "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

// ChangelogService maintains CHANGELOG.md.
type ChangelogService struct {
	files FileAccess
	path  string
}

// NewChangelogService returns a service writing to path (DefaultChangelogPath
// when empty).
func NewChangelogService(files FileAccess, path string) *ChangelogService {
	if path == "" {
		path = DefaultChangelogPath
	}
	return &ChangelogService{files: files, path: path}
}

// Path is the changelog file this service writes.
func (c *ChangelogService) Path() string {
	return c.path
}

// Update inserts section into the changelog. The section goes right after the
// first "---" separator when the file has a header, otherwise at the top. It
// returns false without writing when the release heading is already present.
func (c *ChangelogService) Update(section string) (bool, error) {
	existing, err := c.files.Read(c.path)
	var notFound *FileNotFoundError
	switch {
	case errors.As(err, &notFound):
		existing = ""
	case err != nil:
		return false, &ChangelogError{Path: c.path, Err: err}
	}

	if heading := changelogHeading.FindString(section); heading != "" && hasHeading(existing, heading) {
		log.Infof("changelog already has %s, skipping", heading)
		return false, nil
	}

	var updated string
	if idx := strings.Index(existing, changelogSeparator); idx != -1 {
		head := existing[:idx+len(changelogSeparator)]
		updated = head + section + existing[idx+len(changelogSeparator):]
	} else {
		updated = section + existing
	}
	if err := c.files.Write(c.path, updated); err != nil {
		return false, &ChangelogError{Path: c.path, Err: err}
	}
	return true, nil
}

func hasHeading(content, heading string) bool {
	for _, line := range strings.Split(content, "\n") {
		if line == heading || strings.HasPrefix(line, heading+" ") {
			return true
		}
	}
	return false
}
