package gqlstore

import (
	"testing"

	"github.com/gqlstore/gqlstore/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.BTreeOrder = 4
	cfg.CacheCapacityPages = 16
	return cfg
}

const testSDL = `
type User {
	id: ID!
	name: String!
	posts: [Post!]!
}

type Post {
	id: ID!
	title: String!
	author: User!
}
`

func TestLoadSchemaCreatesOneTablePerType(t *testing.T) {
	cfg := testConfig(t)
	metas, err := LoadSchema(cfg, testSDL)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected two table metadata records, got %d", len(metas))
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if len(db.TableNames()) != 2 {
		t.Fatalf("expected two open tables, got %v", db.TableNames())
	}
}

func TestLoadDataAndResolveRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	if _, err := LoadSchema(cfg, testSDL); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	payload := []byte(`{
		"User": [{"id": "u1", "name": "Ada"}],
		"Post": [{"id": "p1", "title": "Notes", "authorId": "u1"}]
	}`)
	warnings, err := db.LoadData(payload)
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	res, err := db.Resolve(`query { user(id: "u1") { id name posts { id title } } }`, "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected resolve errors: %v", res.Errors)
	}
	user, ok := res.Data["user"].(map[string]interface{})
	if !ok || user["name"] != "Ada" {
		t.Fatalf("expected user Ada, got %#v", res.Data["user"])
	}
	posts, ok := user["posts"].([]interface{})
	if !ok || len(posts) != 1 {
		t.Fatalf("expected one post for Ada, got %#v", user["posts"])
	}
}

// TestLoadDataBatchRelationshipViaForeignKeyField reproduces §8 scenario
// 4 literally: a seed payload gives the owning side's synthesized
// foreign-key field directly ("postsIds", not "posts"), since Post here
// declares no back-reference to User and so User.posts is a ManyToMany
// column stored under ForeignKey "postsIds" rather than a virtual
// OneToMany scanned from Post.
func TestLoadDataBatchRelationshipViaForeignKeyField(t *testing.T) {
	const sdl = `
	type User {
		id: ID!
		name: String!
		posts: [Post!]!
	}

	type Post {
		id: ID!
		title: String!
	}
	`
	cfg := testConfig(t)
	if _, err := LoadSchema(cfg, sdl); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	payload := []byte(`{
		"User": [
			{"id": "u1", "name": "Ada", "postsIds": ["p1", "p2", "p3"]},
			{"id": "u2", "name": "Bea", "postsIds": ["p3", "p4", "p5"]},
			{"id": "u3", "name": "Cid", "postsIds": ["p5", "p6", "p7"]}
		],
		"Post": [
			{"id": "p1", "title": "one"}, {"id": "p2", "title": "two"},
			{"id": "p3", "title": "three"}, {"id": "p4", "title": "four"},
			{"id": "p5", "title": "five"}, {"id": "p6", "title": "six"},
			{"id": "p7", "title": "seven"}
		]
	}`)
	warnings, err := db.LoadData(payload)
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	res, err := db.Resolve(`query { user(id: "u1") { id posts { id title } } }`, "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected resolve errors: %v", res.Errors)
	}
	user, ok := res.Data["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a user, got %#v", res.Data["user"])
	}
	posts, ok := user["posts"].([]interface{})
	if !ok || len(posts) != 3 {
		t.Fatalf("expected 3 posts for u1 (postsIds round-tripped), got %#v", user["posts"])
	}
}

func TestLoadDataWarnsOnUnknownTable(t *testing.T) {
	cfg := testConfig(t)
	if _, err := LoadSchema(cfg, testSDL); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	warnings, err := db.LoadData([]byte(`{"Comment": [{"id": "c1"}]}`))
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Table != "Comment" {
		t.Fatalf("expected one warning for the unknown Comment table, got %v", warnings)
	}
}

func TestOpenReadOnlyRejectsWrites(t *testing.T) {
	cfg := testConfig(t)
	if _, err := LoadSchema(cfg, testSDL); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}

	db, err := OpenReadOnly(cfg)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer db.Close()

	res, err := db.Resolve(`mutation { createUser(input: {name: "Grace"}) { id } }`, "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected a mutation against a read-only store to fail")
	}
}
