package token

import "strings"

// CommentKind is the delimiter style of a comment.
type CommentKind int

const (
	LineComment  CommentKind = iota // --
	BlockComment                    // /* */
)

// Comment is a comment attached to the statement that follows it. Query
// annotations such as "-- name: GetUser :one" are read from these.
type Comment struct {
	Kind CommentKind
	Text string // as written, delimiters included
	Span Span
}

// IsLine reports whether c is a "--" comment.
func (c *Comment) IsLine() bool { return c.Kind == LineComment }

// Body returns the comment text without its delimiters, trimmed.
func (c *Comment) Body() string {
	body := c.Text
	if c.Kind == BlockComment {
		body = strings.TrimSuffix(strings.TrimPrefix(body, "/*"), "*/")
	} else {
		body = strings.TrimPrefix(body, "--")
	}
	return strings.TrimSpace(body)
}
