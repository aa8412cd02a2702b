// SPDX-License-Identifier: MPL-2.0

package history

import (
	"errors"
	"strings"
)

const shortHashLength = 7

// ErrRevisionNotFound is returned when the since revision does not exist.
var ErrRevisionNotFound = errors.New("revision not found")

// Commit is one entry of the changelog.
type Commit struct {
	Hash      string
	ShortHash string
	Subject   string
}

// Line renders the commit as a Markdown bullet: "* <short> <subject>".
func (c Commit) Line() string {
	return "* " + c.ShortHash + " " + c.Subject
}

func shorten(hash string) string {
	if len(hash) <= shortHashLength {
		return hash
	}
	return hash[:shortHashLength]
}

func subjectOf(message string) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(subject)
}
