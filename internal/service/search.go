package service

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/recon/internal/domain"
)

// RowIndex implements sahilm/fuzzy.Source over the displayed rows. Each
// row is indexed by the text of the given column paths.
type RowIndex struct {
	rows  []domain.Record
	texts []string // Pre-computed lowercase row text
}

// NewRowIndex indexes rows by the values at paths.
func NewRowIndex(rows []domain.Record, paths []string) *RowIndex {
	idx := &RowIndex{rows: rows, texts: make([]string, len(rows))}
	for i, row := range rows {
		parts := make([]string, 0, len(paths))
		for _, p := range paths {
			if v := row.Text(p); v != "" {
				parts = append(parts, v)
			}
		}
		idx.texts[i] = strings.ToLower(strings.Join(parts, " "))
	}
	return idx
}

// String returns the lowercase text at index i (implements fuzzy.Source)
func (idx *RowIndex) String(i int) string { return idx.texts[i] }

// Len returns the number of rows (implements fuzzy.Source)
func (idx *RowIndex) Len() int { return len(idx.rows) }

// Filter returns the indexes of rows matching query, best match first.
// An empty query matches every row in order.
func (idx *RowIndex) Filter(query string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]int, idx.Len())
		for i := range out {
			out[i] = i
		}
		return out
	}

	matches := sfuzzy.FindFrom(strings.ToLower(query), idx)
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = m.Index
	}
	return out
}

// Rows returns the rows matching query.
func (idx *RowIndex) Rows(query string) []domain.Record {
	hits := idx.Filter(query)
	out := make([]domain.Record, len(hits))
	for i, h := range hits {
		out[i] = idx.rows[h]
	}
	return out
}

// RankPrograms orders program names by how well they match query. Names
// that do not contain the query's letters in order are dropped.
func RankPrograms(names []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		out := append([]string(nil), names...)
		sort.Strings(out)
		return out
	}

	matches := fuzzy.RankFindFold(query, names)

	// Sort by score (lower is better)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Target < matches[j].Target
	})

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Target
	}
	return out
}
