// Package ast defines the syntax tree consumed by the elaborator.
//
// The tree is closed: every statement, expression and FROM item is one of the
// concrete types declared here, and consumers switch over them exhaustively.
// Every node carries the source span it was parsed from; spans are used for
// diagnostics only.
package ast

import (
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
	// End returns the position of the character immediately after the node.
	End() token.Position
	// GetSpan returns the node's source range.
	GetSpan() token.Span
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	// Comments returns the comments directly preceding the statement.
	Comments() []*token.Comment
	stmtNode()
}

// TableRef is a marker interface for FROM items.
type TableRef interface {
	Node
	tableRefNode()
}

// NodeInfo carries the source span of a node.
type NodeInfo struct {
	Span            token.Span
	LeadingComments []*token.Comment
}

// Pos implements Node.
func (n *NodeInfo) Pos() token.Position { return n.Span.Start }

// End implements Node.
func (n *NodeInfo) End() token.Position { return n.Span.End }

// GetSpan implements Node.
func (n *NodeInfo) GetSpan() token.Span { return n.Span }

// Comments implements Stmt.
func (n *NodeInfo) Comments() []*token.Comment { return n.LeadingComments }

// QualifiedName is an optionally schema-qualified object name.
type QualifiedName struct {
	Schema string
	Name   string
}

func (q QualifiedName) String() string {
	if q.Schema == "" {
		return q.Name
	}
	return q.Schema + "." + q.Name
}

// TypeName is a type reference as written in DDL or a cast.
// Multi-word names are folded to a single space-separated lowercase name
// ("double precision", "timestamp with time zone").
type TypeName struct {
	NodeInfo
	Schema    string
	Name      string
	Modifiers []string // (255), (10, 2)
	ArrayDims int
}

func (t *TypeName) String() string {
	var sb strings.Builder
	if t.Schema != "" {
		sb.WriteString(t.Schema)
		sb.WriteByte('.')
	}
	sb.WriteString(t.Name)
	if len(t.Modifiers) > 0 {
		sb.WriteByte('(')
		sb.WriteString(strings.Join(t.Modifiers, ", "))
		sb.WriteByte(')')
	}
	for range t.ArrayDims {
		sb.WriteString("[]")
	}
	return sb.String()
}

// Qualified returns the type's name as a QualifiedName.
func (t *TypeName) Qualified() QualifiedName {
	return QualifiedName{Schema: t.Schema, Name: t.Name}
}
