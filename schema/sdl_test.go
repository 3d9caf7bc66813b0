package schema

import (
	"testing"

	"github.com/gqlstore/gqlstore/storage"
)

const blogSDL = `
type User {
	id: ID!
	name: String!
	age: Int
	posts: [Post!]!
}

type Post {
	id: ID!
	title: String!
	tags: [String!]!
	author: User!
}

enum Role {
	ADMIN
	MEMBER
}
`

func metaByName(metas []*TableMetadata, name string) *TableMetadata {
	for _, m := range metas {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func TestParseSDLDerivesTablesAndColumnKinds(t *testing.T) {
	metas, enums, err := ParseSDL(blogSDL)
	if err != nil {
		t.Fatalf("ParseSDL: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected two table metadata records, got %d", len(metas))
	}
	if len(enums) != 1 || enums[0].Name != "Role" || len(enums[0].Values) != 2 {
		t.Fatalf("unexpected enums: %+v", enums)
	}

	user := metaByName(metas, "User")
	if user == nil {
		t.Fatal("expected a User table")
	}
	age, ok := user.Column("age")
	if !ok || age.Kind != storage.KindInt || !age.Nullable {
		t.Fatalf("age column = %+v, %v", age, ok)
	}
	name, ok := user.Column("name")
	if !ok || name.Kind != storage.KindString || name.Nullable {
		t.Fatalf("name column = %+v, %v", name, ok)
	}
}

func TestParseSDLClassifiesOneToManyAndManyToOne(t *testing.T) {
	metas, _, err := ParseSDL(blogSDL)
	if err != nil {
		t.Fatalf("ParseSDL: %v", err)
	}
	user := metaByName(metas, "User")
	post := metaByName(metas, "Post")

	posts, ok := user.Column("posts")
	if !ok || posts.Relation != RelationOneToMany || posts.RelatedTable != "Post" {
		t.Fatalf("posts column = %+v, %v", posts, ok)
	}
	author, ok := post.Column("author")
	if !ok || author.Relation != RelationManyToOne || author.RelatedTable != "User" {
		t.Fatalf("author column = %+v, %v", author, ok)
	}
	if author.Kind != storage.KindString {
		t.Fatalf("relation columns must store their related id(s) as KindString, got %v", author.Kind)
	}
}

func TestParseSDLScalarListColumn(t *testing.T) {
	metas, _, err := ParseSDL(blogSDL)
	if err != nil {
		t.Fatalf("ParseSDL: %v", err)
	}
	post := metaByName(metas, "Post")
	tags, ok := post.Column("tags")
	if !ok || !tags.IsList || tags.Kind != storage.KindString || tags.Relation != RelationNone {
		t.Fatalf("tags column = %+v, %v", tags, ok)
	}
}

func TestParseSDLInvalidSyntaxRejected(t *testing.T) {
	if _, _, err := ParseSDL("type User { id: }"); err == nil {
		t.Fatal("expected an error for malformed SDL")
	}
}
