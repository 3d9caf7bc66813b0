package query

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
)

// BuildSchema publishes a graphql-go *graphql.Schema describing every
// entity's object type, its generated <T>Connection/<T>WhereInput/
// <T>OrderByInput companions, and the five scalar filter input types
// (§4.11). Nothing in this package executes queries through it —
// Resolver.Execute walks the raw AST directly — its only job is to make
// the store introspectable (`__schema`/`__type`) the way a GraphQL
// client expects. Written against graphql-go v0.8.1's documented
// top-level API without a local copy to check field names against,
// carrying the same risk already noted for schema/sdl.go.
func BuildSchema(r *Resolver) (*graphql.Schema, error) {
	b := &schemaBuilder{
		objects:     make(map[string]*graphql.Object),
		connections: make(map[string]*graphql.Object),
	}
	filters := buildScalarFilters()
	sortOrder := buildSortOrderEnum()

	for name, e := range r.entities {
		b.objects[name] = graphql.NewObject(graphql.ObjectConfig{
			Name:   name,
			Fields: b.scalarFields(e),
		})
	}
	wheres := make(map[string]*graphql.InputObject, len(r.entities))
	orderBys := make(map[string]*graphql.InputObject, len(r.entities))
	for name, e := range r.entities {
		wheres[name] = buildWhereInput(e, filters)
		orderBys[name] = buildOrderByInput(e, sortOrder)
	}

	// Relation fields and Connections are added only once every object
	// exists, so mutually-referencing types (User <-> Post) resolve.
	for name, e := range r.entities {
		obj := b.objects[name]
		for _, col := range e.meta.Columns {
			if col.Relation == schema.RelationNone {
				continue
			}
			target, ok := b.objects[col.RelatedTable]
			if !ok {
				continue
			}
			var t graphql.Output = target
			if col.Relation != schema.RelationManyToOne && col.Relation != schema.RelationOneToOne {
				t = graphql.NewList(graphql.NewNonNull(target))
			}
			obj.AddFieldConfig(col.Name, &graphql.Field{Type: t})
		}
		b.connections[name] = graphql.NewObject(graphql.ObjectConfig{
			Name: name + "Connection",
			Fields: graphql.Fields{
				"items": &graphql.Field{
					Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(obj))),
					Args: graphql.FieldConfigArgument{
						"where":   &graphql.ArgumentConfig{Type: wheres[name]},
						"orderBy": &graphql.ArgumentConfig{Type: graphql.NewList(orderBys[name])},
						"skip":    &graphql.ArgumentConfig{Type: graphql.Int},
						"take":    &graphql.ArgumentConfig{Type: graphql.Int},
					},
				},
			},
		})
	}

	queryFields := graphql.Fields{}
	mutationFields := graphql.Fields{}
	for name, e := range r.entities {
		lname := lowerFirst(name)
		queryFields[lname] = &graphql.Field{
			Type: b.objects[name],
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
		}
		queryFields[pluralize(lname)] = &graphql.Field{Type: b.connections[name]}

		mutationFields["create"+name] = &graphql.Field{
			Type: b.objects[name],
			Args: graphql.FieldConfigArgument{
				"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(buildMutationInput(e, "Create"+name+"Input", false))},
			},
		}
		mutationFields["update"+name] = &graphql.Field{
			Type: b.objects[name],
			Args: graphql.FieldConfigArgument{
				"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(buildMutationInput(e, "Update"+name+"Input", true))},
			},
		}
		mutationFields["delete"+name] = &graphql.Field{
			Type: b.objects[name],
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
		}
	}

	query := graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queryFields})
	mutation := graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutationFields})
	s, err := graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
	if err != nil {
		return nil, fmt.Errorf("query: build schema: %w", err)
	}
	return &s, nil
}

type schemaBuilder struct {
	objects     map[string]*graphql.Object
	connections map[string]*graphql.Object
}

func (b *schemaBuilder) scalarFields(e *entity) graphql.Fields {
	fields := graphql.Fields{}
	for _, col := range e.meta.Columns {
		if col.Relation != schema.RelationNone {
			continue
		}
		fields[col.Name] = &graphql.Field{Type: outputType(col)}
	}
	return fields
}

func outputType(col schema.Column) graphql.Output {
	if col.Name == "id" {
		return graphql.NewNonNull(graphql.ID)
	}
	var t graphql.Output
	switch col.Kind {
	case storage.KindInt:
		t = graphql.Int
	case storage.KindFloat:
		t = graphql.Float
	case storage.KindBool:
		t = graphql.Boolean
	default:
		t = graphql.String
	}
	if col.IsList {
		t = graphql.NewList(t)
	}
	if !col.Nullable {
		t = graphql.NewNonNull(t)
	}
	return t
}

// buildScalarFilters builds the five scalar filter input types (§4.11):
// StringFilter, IntFilter, FloatFilter, BooleanFilter, IDFilter. None of
// these ever appears in an object field position — only as `where`
// argument types — so the "input types never appear in output position"
// constraint holds by construction.
func buildScalarFilters() map[storage.ValueKind]*graphql.InputObject {
	modeEnum := graphql.NewEnum(graphql.EnumConfig{
		Name: "StringFilterMode",
		Values: graphql.EnumValueConfigMap{
			"DEFAULT":     &graphql.EnumValueConfig{Value: "default"},
			"INSENSITIVE": &graphql.EnumValueConfig{Value: "insensitive"},
		},
	})

	stringFilter := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "StringFilter",
		Fields: graphql.InputObjectConfigFieldMap{
			"equals":     &graphql.InputObjectFieldConfig{Type: graphql.String},
			"not":        &graphql.InputObjectFieldConfig{Type: graphql.String},
			"in":         &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
			"notIn":      &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
			"contains":   &graphql.InputObjectFieldConfig{Type: graphql.String},
			"startsWith": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"endsWith":   &graphql.InputObjectFieldConfig{Type: graphql.String},
			"mode":       &graphql.InputObjectFieldConfig{Type: modeEnum},
		},
	})
	intFilter := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "IntFilter",
		Fields: graphql.InputObjectConfigFieldMap{
			"equals": &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"not":    &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"in":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.Int)},
			"notIn":  &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.Int)},
			"lt":     &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"lte":    &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"gt":     &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"gte":    &graphql.InputObjectFieldConfig{Type: graphql.Int},
		},
	})
	floatFilter := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "FloatFilter",
		Fields: graphql.InputObjectConfigFieldMap{
			"equals": &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"not":    &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"in":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.Float)},
			"notIn":  &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.Float)},
			"lt":     &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"lte":    &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"gt":     &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"gte":    &graphql.InputObjectFieldConfig{Type: graphql.Float},
		},
	})
	boolFilter := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "BooleanFilter",
		Fields: graphql.InputObjectConfigFieldMap{
			"equals": &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
			"not":    &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		},
	})
	idFilter := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "IDFilter",
		Fields: graphql.InputObjectConfigFieldMap{
			"equals": &graphql.InputObjectFieldConfig{Type: graphql.ID},
			"not":    &graphql.InputObjectFieldConfig{Type: graphql.ID},
			"in":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.ID)},
			"notIn":  &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.ID)},
		},
	})

	return map[storage.ValueKind]*graphql.InputObject{
		storage.KindString: stringFilter,
		storage.KindInt:     intFilter,
		storage.KindFloat:   floatFilter,
		storage.KindBool:    boolFilter,
		storage.KindNull:    idFilter, // sentinel slot, looked up only via filterFor("id")
	}
}

func filterFor(col schema.Column, filters map[storage.ValueKind]*graphql.InputObject) *graphql.InputObject {
	if col.Name == "id" {
		return filters[storage.KindNull]
	}
	if f, ok := filters[col.Kind]; ok {
		return f
	}
	return filters[storage.KindString]
}

func buildSortOrderEnum() *graphql.Enum {
	return graphql.NewEnum(graphql.EnumConfig{
		Name: "SortOrder",
		Values: graphql.EnumValueConfigMap{
			"ASC":  &graphql.EnumValueConfig{Value: "ASC"},
			"DESC": &graphql.EnumValueConfig{Value: "DESC"},
		},
	})
}

// buildWhereInput is self-referential (AND/OR/NOT nest the same input
// type), so its field map is built lazily via a thunk.
func buildWhereInput(e *entity, filters map[storage.ValueKind]*graphql.InputObject) *graphql.InputObject {
	var self *graphql.InputObject
	self = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: e.name + "WhereInput",
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{
				"AND": &graphql.InputObjectFieldConfig{Type: graphql.NewList(self)},
				"OR":  &graphql.InputObjectFieldConfig{Type: graphql.NewList(self)},
				"NOT": &graphql.InputObjectFieldConfig{Type: self},
			}
			for _, col := range e.meta.Columns {
				if col.Relation != schema.RelationNone {
					continue
				}
				fields[col.Name] = &graphql.InputObjectFieldConfig{Type: filterFor(col, filters)}
			}
			return fields
		}),
	})
	return self
}

func buildOrderByInput(e *entity, sortOrder *graphql.Enum) *graphql.InputObject {
	values := graphql.EnumValueConfigMap{}
	for _, col := range e.meta.Columns {
		if col.Relation != schema.RelationNone {
			continue
		}
		values[toSnakeCase(col.Name)] = &graphql.EnumValueConfig{Value: col.Name}
	}
	fieldEnum := graphql.NewEnum(graphql.EnumConfig{Name: e.name + "OrderByField", Values: values})
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: e.name + "OrderByInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"field":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(fieldEnum)},
			"direction": &graphql.InputObjectFieldConfig{Type: sortOrder},
		},
	})
}

// buildMutationInput publishes Create<T>Input/Update<T>Input: every
// settable column (anything but the computed OneToMany side and the
// server-assigned id), required unless the column is nullable or this
// is an update (every field of an update is optional).
func buildMutationInput(e *entity, name string, allOptional bool) *graphql.InputObject {
	fields := graphql.InputObjectConfigFieldMap{}
	for _, col := range e.meta.Columns {
		if col.Relation == schema.RelationOneToMany || col.Name == "id" {
			continue
		}
		t := mutationInputType(col)
		if !allOptional && !col.Nullable {
			t = graphql.NewNonNull(t)
		}
		fields[col.Name] = &graphql.InputObjectFieldConfig{Type: t}
	}
	return graphql.NewInputObject(graphql.InputObjectConfig{Name: name, Fields: fields})
}

func mutationInputType(col schema.Column) graphql.Input {
	if col.Relation != schema.RelationNone {
		if col.IsList {
			return graphql.NewList(graphql.ID)
		}
		return graphql.ID
	}
	var t graphql.Input
	switch col.Kind {
	case storage.KindInt:
		t = graphql.Int
	case storage.KindFloat:
		t = graphql.Float
	case storage.KindBool:
		t = graphql.Boolean
	default:
		t = graphql.String
	}
	if col.IsList {
		t = graphql.NewList(t)
	}
	return t
}
