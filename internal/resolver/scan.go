package resolver

import (
	"catalog-core/internal/dbexec"
	"catalog-core/internal/planner"
	"catalog-core/internal/schema"
)

// scannedGraph is the result of scanning one joined select: hydrated roots,
// the non-nil records at each joined relation path (parents for nested
// to-many edges), and the batch parent key per root when requested.
type scannedGraph struct {
	roots      []*Record
	byPath     map[string][]*Record
	parentKeys []interface{}
}

func (r *Resolver) scanGraph(rows dbexec.Rows, gq *planner.GraphQuery, root schema.Table) (*scannedGraph, error) {
	tableByPath := map[string]schema.Table{"": root}
	for _, join := range gq.Joins {
		table, ok := r.catalog.Table(join.Relation.RemoteEntity)
		if ok {
			tableByPath[planner.PathKey(join.Path)] = table
		}
	}

	n := len(gq.Columns)
	total := n
	if gq.HasParentKey {
		total++
	}

	out := &scannedGraph{byPath: make(map[string][]*Record)}
	for rows.Next() {
		values := make([]interface{}, total)
		ptrs := make([]interface{}, total)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		// Columns arrive grouped by relation path: the root block first, then
		// one block per joined table in join order.
		current := make(map[string]*Record, len(tableByPath))
		for i := 0; i < n; {
			path := gq.Columns[i].Path
			key := planner.PathKey(path)
			j := i
			for j < n && planner.PathKey(gq.Columns[j].Path) == key {
				j++
			}

			table := tableByPath[key]
			rec := newRecord(table.Entity)
			for k := i; k < j; k++ {
				rec.Fields[gq.Columns[k].Column.Name] = convertValue(values[k])
			}
			// A joined row whose primary key is NULL means the LEFT JOIN
			// found nothing: the reference is null, loaded as nil.
			if key != "" && rec.Fields[table.PrimaryKey().Name] == nil {
				rec = nil
			}
			current[key] = rec

			if key == "" {
				out.roots = append(out.roots, rec)
			} else {
				parentKey := planner.PathKey(path[:len(path)-1])
				if parent := current[parentKey]; parent != nil {
					parent.setOne(path[len(path)-1], rec)
				}
				if rec != nil {
					out.byPath[key] = append(out.byPath[key], rec)
				}
			}
			i = j
		}

		if gq.HasParentKey {
			out.parentKeys = append(out.parentKeys, convertValue(values[n]))
		}
	}
	return out, rows.Err()
}

// convertValue normalizes driver values: the MySQL driver returns []byte for
// text, decimal, and time columns, which callers expect as string.
func convertValue(val interface{}) interface{} {
	if b, ok := val.([]byte); ok {
		return string(b)
	}
	return val
}
