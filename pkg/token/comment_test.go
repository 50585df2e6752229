package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComment_Body(t *testing.T) {
	tests := []struct {
		comment Comment
		want    string
		line    bool
	}{
		{Comment{Kind: LineComment, Text: "-- name: GetUser :one"}, "name: GetUser :one", true},
		{Comment{Kind: LineComment, Text: "--"}, "", true},
		{Comment{Kind: BlockComment, Text: "/* setup */"}, "setup", false},
		{Comment{Kind: BlockComment, Text: "/*\n  multi\n  line\n*/"}, "multi\n  line", false},
	}
	for _, tt := range tests {
		t.Run(tt.comment.Text, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.comment.Body())
			assert.Equal(t, tt.line, tt.comment.IsLine())
		})
	}
}
