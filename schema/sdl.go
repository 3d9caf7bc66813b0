package schema

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/gqlstore/gqlstore/storage"
)

// EnumDef is a GraphQL enum declared in the SDL, as ParseSDL returns it
// (§4.9). Enum-typed fields are stored as strings; LoadSchema does not
// keep the enums and BuildSchema publishes no user enum types, so
// introspection shows those fields as String.
type EnumDef struct {
	Name   string
	Values []string
}

// rawField is an intermediate view of one SDL field before relation
// kinds are resolved, since resolving OneToOne/OneToMany requires
// looking at every type's fields first.
type rawField struct {
	name       string
	typeName   string // the SDL type name, scalar/enum or object
	isRelation bool   // true when typeName names another object type
	isList     bool
	nullable   bool
}

type rawType struct {
	name   string
	fields []rawField
}

// ParseSDL derives table metadata for every object type in sdl, plus
// the enums it declares (C10, §4.9). It does not touch storage — callers
// decide whether to create, reopen, or migrate a table from the result.
func ParseSDL(sdl string) ([]*TableMetadata, []EnumDef, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: sdl})
	if err != nil {
		return nil, nil, fmt.Errorf("schema: parse SDL: %w", err)
	}

	var rawTypes []rawType
	var enums []EnumDef
	scalarKinds := builtinScalars()

	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectDefinition:
			rt := rawType{name: d.Name.Value}
			for _, f := range d.Fields {
				typeName, isList, nullable := resolveFieldType(f.Type)
				_, isScalar := scalarKinds[typeName]
				rf := rawField{
					name:       f.Name.Value,
					typeName:   typeName,
					isRelation: !isScalar,
					isList:     isList,
					nullable:   nullable,
				}
				rt.fields = append(rt.fields, rf)
			}
			rawTypes = append(rawTypes, rt)
		case *ast.EnumDefinition:
			e := EnumDef{Name: d.Name.Value}
			for _, v := range d.Values {
				e.Values = append(e.Values, v.Name.Value)
			}
			enums = append(enums, e)
		}
	}

	enumSet := make(map[string]bool, len(enums))
	for _, e := range enums {
		enumSet[e.Name] = true
	}
	typeIndex := make(map[string]rawType, len(rawTypes))
	for _, rt := range rawTypes {
		typeIndex[rt.name] = rt
	}
	// Enums are only known once every definition has been scanned; a
	// field whose type is an enum name is not actually a relation even
	// though it failed the builtin-scalar check above.
	for ti := range rawTypes {
		for fi := range rawTypes[ti].fields {
			if enumSet[rawTypes[ti].fields[fi].typeName] {
				rawTypes[ti].fields[fi].isRelation = false
			}
		}
	}

	tables := make([]*TableMetadata, 0, len(rawTypes))
	for _, rt := range rawTypes {
		tm := &TableMetadata{Name: rt.name, SourceSDL: sdl}
		for _, f := range rt.fields {
			if !f.isRelation {
				tm.Columns = append(tm.Columns, Column{
					Name:     f.name,
					Kind:     scalarKindOf(f.typeName),
					IsList:   f.isList,
					Nullable: f.nullable,
				})
				continue
			}
			tm.Columns = append(tm.Columns, relationColumn(rt, f, typeIndex))
		}
		tables = append(tables, tm)
	}
	return tables, enums, nil
}

// relationColumn classifies a field referencing another type into
// ManyToOne/OneToOne/ManyToMany/OneToMany and synthesizes the foreign
// key column name per §4.9: "<field>Id" for a single reference,
// "<singularized field>Ids" for a list.
func relationColumn(owner rawType, f rawField, typeIndex map[string]rawType) Column {
	target, ok := typeIndex[f.typeName]
	reverseIsList := false
	hasReverse := false
	if ok {
		for _, rf := range target.fields {
			if rf.isRelation && rf.typeName == owner.name {
				hasReverse = true
				reverseIsList = rf.isList
				break
			}
		}
	}

	switch {
	case f.isList && hasReverse && !reverseIsList:
		// the other side holds a single reference back to us: this is
		// the "many" side of a classic one-to-many, resolved by
		// scanning the child table rather than an owned FK column.
		return Column{
			Name:         f.name,
			Kind:         storage.KindString,
			IsList:       true,
			Nullable:     f.nullable,
			RelatedTable: f.typeName,
			Relation:     RelationOneToMany,
		}
	case f.isList:
		return Column{
			Name:         f.name,
			Kind:         storage.KindString,
			IsList:       true,
			Nullable:     f.nullable,
			RelatedTable: f.typeName,
			ForeignKey:   singularize(f.name) + "Ids",
			Relation:     RelationManyToMany,
		}
	case hasReverse && !reverseIsList:
		return Column{
			Name:         f.name,
			Kind:         storage.KindString,
			Nullable:     f.nullable,
			RelatedTable: f.typeName,
			ForeignKey:   f.name + "Id",
			Relation:     RelationOneToOne,
		}
	default:
		return Column{
			Name:         f.name,
			Kind:         storage.KindString,
			Nullable:     f.nullable,
			RelatedTable: f.typeName,
			ForeignKey:   f.name + "Id",
			Relation:     RelationManyToOne,
		}
	}
}

// resolveFieldType unwraps NonNull/List wrappers to find the named
// type, whether the field is a list, and whether it is nullable.
func resolveFieldType(t ast.Type) (name string, isList bool, nullable bool) {
	nullable = true
	for {
		switch v := t.(type) {
		case *ast.NonNull:
			nullable = false
			t = v.Type
		case *ast.List:
			isList = true
			t = v.Type
		case *ast.Named:
			return v.Name.Value, isList, nullable
		default:
			return "", isList, nullable
		}
	}
}

func builtinScalars() map[string]bool {
	return map[string]bool{
		"ID": true, "String": true, "Int": true, "Float": true, "Boolean": true,
	}
}

// scalarKindOf maps a GraphQL builtin scalar name to storage.ValueKind.
func scalarKindOf(name string) storage.ValueKind {
	switch name {
	case "Int":
		return storage.KindInt
	case "Float":
		return storage.KindFloat
	case "Boolean":
		return storage.KindBool
	default: // ID, String, enums
		return storage.KindString
	}
}

// singularize strips a trailing "s" as a best-effort singularization of
// a list field name into a foreign-key column name (§4.9). This mirrors
// the loader's documented convention rather than a full inflector.
func singularize(plural string) string {
	if strings.HasSuffix(plural, "ies") && len(plural) > 3 {
		return plural[:len(plural)-3] + "y"
	}
	if strings.HasSuffix(plural, "s") && len(plural) > 1 {
		return plural[:len(plural)-1]
	}
	return plural
}
