package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain"
)

// Search runs a BM25 text search via FT.SEARCH. Terms are OR-ed and
// restricted to the resolved fields.
func (s *Store) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	fields, err := q.ResolveFields(s.def)
	if err != nil {
		return nil, err
	}

	queryStr, err := buildTextQuery(q.Query, fields)
	if err != nil {
		return nil, err
	}

	args := []string{s.def.Name, queryStr}

	stored := s.def.StoredFields()
	if len(stored) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(stored)))
		args = append(args, stored...)
	} else {
		args = append(args, "NOCONTENT")
	}

	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	raw, err := s.ft(ctx, "FT.SEARCH", args...).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: s.indexErr(err)}
	}

	res, err := parseScoredResult(raw, len(stored) > 0)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		e.ID = strings.TrimPrefix(e.ID, s.prefix)
		s.decodeDates(e.Fields)
	}
	return res, nil
}

// DocCount returns the number of indexed hashes via FT.SEARCH with LIMIT 0 0.
func (s *Store) DocCount(ctx context.Context) (uint64, error) {
	raw, err := s.ft(ctx, "FT.SEARCH", s.def.Name, "*", "LIMIT", "0", "0").ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: s.indexErr(err)}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("parse count: %w", err)}
	}
	return uint64(total), nil
}

// indexErr maps a dropped FT index to db.ErrIndexNotFound.
func (s *Store) indexErr(err error) error {
	if serverSays(err, "unknown index name", "no such index") {
		return fmt.Errorf("%w: %s: %w", db.ErrIndexNotFound, s.def.Name, err)
	}
	return err
}

func (s *Store) decodeDates(fields map[string]string) {
	for name, v := range fields {
		f, ok := s.def.Field(name)
		if !ok || f.Type != db.IndexFieldDate {
			continue
		}
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		fields[name] = time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
	}
}

// buildTextQuery renders "@f1|f2:(t1|t2)".
func buildTextQuery(text string, fields []string) (string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", fmt.Errorf("%w: query has no terms", domain.ErrInvalidQuery)
	}
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, escapeQuery(w))
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(fields, "|"), strings.Join(terms, "|")), nil
}

// parseScoredResult reads a WITHSCORES reply. Each hit is a key and a score,
// followed by a flat field/value array when fields were returned. Hits that
// do not parse are dropped.
func parseScoredResult(raw []rueidis.RedisMessage, withFields bool) (*db.SearchResult, error) {
	res := &db.SearchResult{}
	if len(raw) == 0 {
		return res, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	res.Total = int(total)

	width := 2
	if withFields {
		width = 3
	}
	for rest := raw[1:]; len(rest) >= width; rest = rest[width:] {
		if hit, ok := parseHit(rest[:width]); ok {
			res.Entries = append(res.Entries, hit)
		}
	}
	return res, nil
}

func parseHit(row []rueidis.RedisMessage) (db.SearchEntry, bool) {
	key, err := row[0].ToString()
	if err != nil {
		return db.SearchEntry{}, false
	}
	score, err := row[1].AsFloat64()
	if err != nil {
		return db.SearchEntry{}, false
	}
	hit := db.SearchEntry{ID: key, Score: score, Fields: map[string]string{}}
	if len(row) == 3 {
		flat, err := row[2].ToArray()
		if err != nil {
			return db.SearchEntry{}, false
		}
		for ; len(flat) >= 2; flat = flat[2:] {
			name, nerr := flat[0].ToString()
			value, verr := flat[1].ToString()
			if nerr == nil && verr == nil {
				hit.Fields[name] = value
			}
		}
	}
	return hit, true
}

// queryPunct lists the characters RediSearch treats as syntax.
const queryPunct = `\'"@{}()|-~*[]!%^$<>=;+:.,`

// escapeQuery backslash-escapes query syntax in a single term.
func escapeQuery(term string) string {
	if !strings.ContainsAny(term, queryPunct) {
		return term
	}
	var b strings.Builder
	b.Grow(len(term) * 2)
	for _, r := range term {
		if strings.ContainsRune(queryPunct, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
