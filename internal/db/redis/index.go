package redis

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/kailas-cloud/suntan/internal/db"
)

// EnsureIndex creates the FT index unless one with the same name exists.
// An existing index must declare the same attributes as the definition,
// otherwise ErrSchemaMismatch is returned.
func (s *Store) EnsureIndex(ctx context.Context) error {
	have, exists, err := s.indexAttributes(ctx)
	if err != nil {
		return err
	}
	if exists {
		return s.matchAttributes(have)
	}
	if err := s.CreateIndex(ctx); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return err
	}
	return nil
}

// CreateIndex creates the FT index from the store's definition.
func (s *Store) CreateIndex(ctx context.Context) error {
	args, err := buildCreateArgs(s.def, s.prefix)
	if err != nil {
		return err
	}

	if err := s.ft(ctx, "FT.CREATE", args...).Error(); err != nil {
		if serverSays(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists checks index existence via FT.INFO.
func (s *Store) IndexExists(ctx context.Context) (bool, error) {
	_, exists, err := s.indexAttributes(ctx)
	return exists, err
}

// indexAttributes reads the attributes section of FT.INFO as
// identifier -> "TYPE" or "TYPE NOINDEX". A nil map with exists=true means
// the server did not report attributes.
func (s *Store) indexAttributes(ctx context.Context) (map[string]string, bool, error) {
	info, err := s.ft(ctx, "FT.INFO", s.def.Name).ToArray()
	if err != nil {
		if serverSays(err, "unknown index name", "no such index") {
			return nil, false, nil
		}
		return nil, false, &db.Error{Op: db.OpOpen, Err: err}
	}
	for i := 0; i+1 < len(info); i += 2 {
		if key, _ := info[i].ToString(); key != "attributes" && key != "fields" {
			continue
		}
		attrs, err := info[i+1].ToArray()
		if err != nil {
			return nil, true, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("parse attributes: %w", err)}
		}
		out := make(map[string]string, len(attrs))
		for _, a := range attrs {
			tokens, err := a.AsStrSlice()
			if err != nil {
				continue
			}
			if name, shape := attributeShape(tokens); name != "" {
				out[name] = shape
			}
		}
		return out, true, nil
	}
	return nil, true, nil
}

// attributeShape reads one FT.INFO attribute entry, a flat list such as
// [identifier name attribute name type TEXT WEIGHT 1 NOINDEX].
func attributeShape(tokens []string) (name, shape string) {
	var typ string
	noindex := false
	for i, t := range tokens {
		switch {
		case t == "identifier" && i+1 < len(tokens):
			name = tokens[i+1]
		case t == "type" && i+1 < len(tokens):
			typ = tokens[i+1]
		case strings.EqualFold(t, "NOINDEX"):
			noindex = true
		}
	}
	if noindex {
		return name, typ + " NOINDEX"
	}
	return name, typ
}

func (s *Store) matchAttributes(have map[string]string) error {
	if have == nil {
		return nil
	}
	want := make(map[string]string, len(s.def.Fields))
	for _, f := range s.def.Fields {
		decl, ok := ftType[f.Type]
		if !ok {
			continue
		}
		shape := decl[0]
		if !f.Indexed {
			shape += " NOINDEX"
		}
		want[f.Name] = shape
	}
	if maps.Equal(have, want) {
		return nil
	}
	return &db.Error{Op: db.OpOpen, Err: fmt.Errorf("%w: FT index %s has %v, schema wants %v",
		db.ErrSchemaMismatch, s.def.Name, have, want)}
}

// ftType maps index field types to their FT.CREATE declaration. Dates are
// stored as epoch milliseconds and bytes are matched exactly.
var ftType = map[db.IndexFieldType][]string{
	db.IndexFieldText:    {"TEXT"},
	db.IndexFieldNumeric: {"NUMERIC"},
	db.IndexFieldDate:    {"NUMERIC"},
	db.IndexFieldBytes:   {"TAG", "CASESENSITIVE"},
}

// buildCreateArgs renders FT.CREATE arguments. Every field is declared,
// with NOINDEX on the stored-only ones, so FT.INFO shows the full hash
// layout.
func buildCreateArgs(idx *db.IndexDefinition, prefix string) ([]string, error) {
	switch {
	case idx.Name == "":
		return nil, errors.New("index name is required")
	case len(idx.Fields) == 0:
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name, "ON", "HASH", "PREFIX", "1", prefix, "SCHEMA"}
	for _, f := range idx.Fields {
		decl, ok := ftType[f.Type]
		switch {
		case f.Name == "":
			return nil, errors.New("field name is required")
		case !ok:
			return nil, fmt.Errorf("field %s: unknown field type", f.Name)
		}
		args = append(args, f.Name)
		args = append(args, decl...)
		if !f.Indexed {
			args = append(args, "NOINDEX")
		}
	}
	return args, nil
}
