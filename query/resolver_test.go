package query

import (
	"testing"

	"github.com/graphql-go/graphql/language/parser"

	"github.com/gqlstore/gqlstore/config"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
	"github.com/gqlstore/gqlstore/table"
)

func newUserPostResolver(t *testing.T) *Resolver {
	t.Helper()
	userMeta := &schema.TableMetadata{
		Columns: []schema.Column{
			{Name: "id", Kind: storage.KindString},
			{Name: "name", Kind: storage.KindString},
			{Name: "posts", Relation: schema.RelationOneToMany, RelatedTable: "Post"},
		},
	}
	postMeta := &schema.TableMetadata{
		Columns: []schema.Column{
			{Name: "id", Kind: storage.KindString},
			{Name: "title", Kind: storage.KindString},
			{Name: "author", Kind: storage.KindString, Relation: schema.RelationManyToOne, RelatedTable: "User"},
		},
	}
	cfg := config.Default()
	cfg.BTreeOrder = 4
	cfg.CacheCapacityPages = 16
	dir := t.TempDir()

	userTbl, err := table.Create(dir, "User", userMeta, cfg)
	if err != nil {
		t.Fatalf("create User table: %v", err)
	}
	t.Cleanup(func() { userTbl.Close() })
	postTbl, err := table.Create(dir, "Post", postMeta, cfg)
	if err != nil {
		t.Fatalf("create Post table: %v", err)
	}
	t.Cleanup(func() { postTbl.Close() })

	users := []struct{ id, name string }{{"u1", "Ada"}, {"u2", "Grace"}}
	for _, u := range users {
		rec := storage.NewRecord()
		rec.Set("id", storage.String(u.id))
		rec.Set("name", storage.String(u.name))
		if err := userTbl.Insert(u.id, rec, false); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	posts := []struct{ id, title, author string }{
		{"p1", "Notes", "u1"},
		{"p2", "More notes", "u1"},
		{"p3", "Hopper's log", "u2"},
	}
	for _, p := range posts {
		rec := storage.NewRecord()
		rec.Set("id", storage.String(p.id))
		rec.Set("title", storage.String(p.title))
		rec.Set("author", storage.String(p.author))
		if err := postTbl.Insert(p.id, rec, false); err != nil {
			t.Fatalf("insert post: %v", err)
		}
	}

	tables := map[string]*table.Table{"User": userTbl, "Post": postTbl}
	metas := map[string]*schema.TableMetadata{"User": userMeta, "Post": postMeta}
	return NewResolver(tables, metas, nil, nil, nil)
}

func TestResolverSingularQuery(t *testing.T) {
	r := newUserPostResolver(t)
	doc, err := parser.Parse(parser.ParseParams{Source: `query { user(id: "u1") { id name } }`})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := r.Execute(doc, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	user, ok := res.Data["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a user object, got %#v", res.Data["user"])
	}
	if user["name"] != "Ada" {
		t.Fatalf("expected name Ada, got %#v", user["name"])
	}
}

func TestResolverSingularQueryNotFound(t *testing.T) {
	r := newUserPostResolver(t)
	doc, err := parser.Parse(parser.ParseParams{Source: `query { user(id: "nope") { id } }`})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := r.Execute(doc, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Data["user"] != nil {
		t.Fatalf("expected nil for a missing id, got %#v", res.Data["user"])
	}
}

func TestResolverConnectionWithRelation(t *testing.T) {
	r := newUserPostResolver(t)
	doc, err := parser.Parse(parser.ParseParams{Source: `
		query {
			users {
				items(orderBy: {field: "name"}) {
					id
					name
					posts { id title }
				}
			}
		}
	`})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := r.Execute(doc, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	usersConn, ok := res.Data["users"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a users connection, got %#v", res.Data["users"])
	}
	items, ok := usersConn["items"].([]interface{})
	if !ok || len(items) != 2 {
		t.Fatalf("expected two user items, got %#v", usersConn["items"])
	}
	ada := items[0].(map[string]interface{})
	if ada["name"] != "Ada" {
		t.Fatalf("expected items sorted by name ascending, first got %#v", ada["name"])
	}
	adaPosts, ok := ada["posts"].([]interface{})
	if !ok || len(adaPosts) != 2 {
		t.Fatalf("expected Ada to have two posts, got %#v", ada["posts"])
	}
}

func TestResolverCreateMutation(t *testing.T) {
	r := newUserPostResolver(t)
	doc, err := parser.Parse(parser.ParseParams{Source: `
		mutation($input: CreateUserInput!) {
			createUser(input: $input) { id name }
		}
	`})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	variables := map[string]interface{}{
		"input": map[string]interface{}{"name": "Margaret"},
	}
	res := r.Execute(doc, "", variables)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	created, ok := res.Data["createUser"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a created user object, got %#v", res.Data["createUser"])
	}
	if created["name"] != "Margaret" {
		t.Fatalf("expected name Margaret, got %#v", created["name"])
	}
	if id, _ := created["id"].(string); id == "" {
		t.Fatal("expected a server-generated id for a create with no id in the input")
	}
}

func TestResolverMutationPerFieldErrorIsolation(t *testing.T) {
	r := newUserPostResolver(t)
	doc, err := parser.Parse(parser.ParseParams{Source: `
		mutation {
			bad: deleteUser(id: "does-not-exist") { id }
			good: createUser(input: {name: "Katherine"}) { id name }
		}
	`})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := r.Execute(doc, "", nil)
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly one field error, got %v", res.Errors)
	}
	if res.Errors[0].Path[0] != "bad" {
		t.Fatalf("expected the error to be attached to the failing field, got %#v", res.Errors[0])
	}
	if res.Data["bad"] != nil {
		t.Fatalf("expected nil data for the failing field, got %#v", res.Data["bad"])
	}
	good, ok := res.Data["good"].(map[string]interface{})
	if !ok || good["name"] != "Katherine" {
		t.Fatalf("expected the sibling mutation field to still succeed, got %#v", res.Data["good"])
	}
}
