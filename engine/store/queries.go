package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opencircuit/core/engine/domain"
)

// Put inserts a new component or, if one with the same part number already
// exists, replaces it in place. Upsert is atomic: callers never race each
// other into a duplicate part number. A Put that names a part number already
// owned by a different ComponentId fails with Conflict rather than silently
// stealing the row.
func (s *Store) Put(ctx context.Context, c domain.Component) (domain.Component, error) {
	explicitID := c.ID != (domain.ComponentId{})

	existing, err := s.GetByPartNumber(ctx, c.PartNumber)
	switch {
	case err == nil && explicitID && existing.ID != c.ID:
		return domain.Component{}, &StoreError{Kind: Conflict, Detail: fmt.Sprintf("part number %q is already owned by a different component", c.PartNumber)}
	case err == nil && !explicitID:
		c.ID = existing.ID
	case err != nil && !isNotFound(err):
		return domain.Component{}, err
	case err != nil && !explicitID:
		c.ID = domain.NewComponentId()
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	specsJSON, err := json.Marshal(specsToWire(c.Specifications))
	if err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}
	priceJSON, err := json.Marshal(c.Price)
	if err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}
	availJSON, err := json.Marshal(c.Availability)
	if err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}

	const query = `
		INSERT INTO components (
			id, part_number, manufacturer, category, description, datasheet_url,
			specifications, footprint, price_info, availability, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(part_number) DO UPDATE SET
			manufacturer   = excluded.manufacturer,
			category       = excluded.category,
			description    = excluded.description,
			datasheet_url  = excluded.datasheet_url,
			specifications = excluded.specifications,
			footprint      = excluded.footprint,
			price_info     = excluded.price_info,
			availability   = excluded.availability,
			updated_at     = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		c.ID.String(), c.PartNumber, c.Manufacturer, c.Category, c.Description, c.DatasheetURL,
		string(specsJSON), c.Footprint, string(priceJSON), string(availJSON),
		c.CreatedAt.Format(time.RFC3339Nano), c.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}

	return s.GetByPartNumber(ctx, c.PartNumber)
}

// GetByID retrieves a component by its identifier.
func (s *Store) GetByID(ctx context.Context, id domain.ComponentId) (domain.Component, error) {
	row := s.db.QueryRowContext(ctx, selectComponentCols+` WHERE id = ?`, id.String())
	return scanComponent(row)
}

// GetByPartNumber retrieves a component by its unique part number.
func (s *Store) GetByPartNumber(ctx context.Context, partNumber string) (domain.Component, error) {
	row := s.db.QueryRowContext(ctx, selectComponentCols+` WHERE part_number = ?`, partNumber)
	return scanComponent(row)
}

// ByCategory lists components in a category, most recently updated first.
func (s *Store) ByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Component, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		selectComponentCols+` WHERE category = ? ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		category, limit, offset)
	if err != nil {
		return nil, &StoreError{Kind: Io, Detail: err.Error()}
	}
	defer rows.Close()
	return scanComponents(rows)
}

// All pages through every component in the catalog regardless of
// category, most recently updated first, for bulk maintenance jobs like
// re-embedding after a model change.
func (s *Store) All(ctx context.Context, limit, offset int) ([]domain.Component, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		selectComponentCols+` ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, &StoreError{Kind: Io, Detail: err.Error()}
	}
	defer rows.Close()
	return scanComponents(rows)
}

// Search ranks components against filter by a deterministic weighted
// relevance score — exact part-number match 1.0; prefix match on
// part-number 0.6; 0.3 per distinct free-text term hit in the description;
// manufacturer match 0.2; category match 0.1, clamped to [0, 1] — and
// returns them ordered by descending score, ties broken by part_number
// ascending. This is not full-text search: candidates are narrowed by the
// filter's structured fields in SQL where that's a plain column match, and
// scored/filtered the rest of the way in Go, which is the one
// dependency-free heuristic the catalog needs before a real search index
// is wired in front of it.
func (s *Store) Search(ctx context.Context, filter domain.ComponentSearchFilter) ([]domain.ComponentSearchResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := selectComponentCols
	var args []any
	if filter.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, filter.Category)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Kind: Io, Detail: err.Error()}
	}
	defer rows.Close()
	components, err := scanComponents(rows)
	if err != nil {
		return nil, err
	}

	var results []domain.ComponentSearchResult
	for _, c := range components {
		score, matched := scoreComponent(c, filter)
		if !matched {
			continue
		}
		results = append(results, domain.ComponentSearchResult{Component: c, RelevanceScore: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].Component.PartNumber < results[j].Component.PartNumber
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scoreComponent reports whether c satisfies filter's hard criteria
// (category, manufacturer prefix, spec ranges, price range, stock
// minimum, and — if set — a free-text hit somewhere) and, if so, its
// relevance score under the weighted-sum formula.
func scoreComponent(c domain.Component, filter domain.ComponentSearchFilter) (float64, bool) {
	if filter.ManufacturerPrefix != "" && !strings.HasPrefix(strings.ToLower(c.Manufacturer), strings.ToLower(filter.ManufacturerPrefix)) {
		return 0, false
	}
	for key, r := range filter.SpecRanges {
		v, ok := c.Specifications[key]
		if !ok {
			return 0, false
		}
		switch v.Kind {
		case domain.SpecNumber:
			if v.Num < r.Low || v.Num > r.High {
				return 0, false
			}
		case domain.SpecRange:
			if v.High < r.Low || v.Low > r.High {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	if filter.Price != nil {
		if !c.Price.Known || c.Price.UnitPrice < filter.Price.Min || c.Price.UnitPrice > filter.Price.Max {
			return 0, false
		}
	}
	if filter.MinStockQty > 0 {
		if !c.Availability.Known || c.Availability.StockQty < filter.MinStockQty {
			return 0, false
		}
	}

	score := 0.0
	if filter.ManufacturerPrefix != "" {
		score += 0.2
	}

	terms := searchTerms(filter.FreeText)
	textMatched := filter.FreeText == ""
	if filter.FreeText != "" {
		q := strings.ToLower(strings.TrimSpace(filter.FreeText))
		pn := strings.ToLower(c.PartNumber)
		switch {
		case pn == q:
			score += 1.0
			textMatched = true
		case strings.HasPrefix(pn, q):
			score += 0.6
			textMatched = true
		}

		desc := strings.ToLower(c.Description)
		hits := 0
		for _, t := range terms {
			if strings.Contains(desc, t) {
				hits++
			}
		}
		if hits > 0 {
			score += 0.3 * float64(hits)
			textMatched = true
		}

		if strings.Contains(strings.ToLower(c.Manufacturer), q) {
			score += 0.2
			textMatched = true
		}
		if strings.Contains(strings.ToLower(c.Category), q) {
			score += 0.1
			textMatched = true
		}
	}
	if !textMatched {
		return 0, false
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score, true
}

// searchTerms splits free text into lowercased, de-duplicated terms for
// the per-term description scoring.
func searchTerms(freeText string) []string {
	fields := strings.Fields(strings.ToLower(freeText))
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// BulkImport upserts a batch of components inside a single transaction,
// returning the number of rows written. A failure mid-batch rolls back
// the entire batch rather than leaving a partial import.
func (s *Store) BulkImport(ctx context.Context, components []domain.Component) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StoreError{Kind: Io, Detail: err.Error()}
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO components (
			id, part_number, manufacturer, category, description, datasheet_url,
			specifications, footprint, price_info, availability, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(part_number) DO UPDATE SET
			manufacturer   = excluded.manufacturer,
			category       = excluded.category,
			description    = excluded.description,
			datasheet_url  = excluded.datasheet_url,
			specifications = excluded.specifications,
			footprint      = excluded.footprint,
			price_info     = excluded.price_info,
			availability   = excluded.availability,
			updated_at     = excluded.updated_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, &StoreError{Kind: Io, Detail: err.Error()}
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	n := 0
	for _, c := range components {
		if c.ID == (domain.ComponentId{}) {
			c.ID = domain.NewComponentId()
		}
		specsJSON, err := json.Marshal(specsToWire(c.Specifications))
		if err != nil {
			return n, &StoreError{Kind: Io, Detail: err.Error()}
		}
		priceJSON, _ := json.Marshal(c.Price)
		availJSON, _ := json.Marshal(c.Availability)
		created := now
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID.String(), c.PartNumber, c.Manufacturer, c.Category, c.Description, c.DatasheetURL,
			string(specsJSON), c.Footprint, string(priceJSON), string(availJSON), created, now,
		); err != nil {
			return n, &StoreError{Kind: Io, Detail: err.Error()}
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return n, &StoreError{Kind: Io, Detail: err.Error()}
	}
	return n, nil
}

// DeleteByID removes a component and its cached vectors.
func (s *Store) DeleteByID(ctx context.Context, id domain.ComponentId) error {
	// Foreign keys are not enabled on the connection, so ON DELETE CASCADE
	// does not fire; the vectors are removed explicitly.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM component_vectors WHERE component_id = ?`, id.String()); err != nil {
		return &StoreError{Kind: Io, Detail: err.Error()}
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM components WHERE id = ?`, id.String())
	if err != nil {
		return &StoreError{Kind: Io, Detail: err.Error()}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Kind: Io, Detail: err.Error()}
	}
	if n == 0 {
		return &StoreError{Kind: NotFound, Detail: "component not found"}
	}
	return nil
}

// PutVector stores a component's embedding alongside the model that
// produced it. A component may accumulate one row per embedding model it
// has been vectorized under.
func (s *Store) PutVector(ctx context.Context, v domain.ComponentVector) error {
	blob := encodeVector(v.Vector)
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO component_vectors (component_id, vector, embedding_model, created_at) VALUES (?, ?, ?, ?)`,
		v.ComponentID.String(), blob, v.EmbeddingModel, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return &StoreError{Kind: Io, Detail: err.Error()}
	}
	return nil
}

// VectorsByModel returns every stored vector for the given embedding
// model, for building an in-memory ANN index.
func (s *Store) VectorsByModel(ctx context.Context, embeddingModel string) ([]domain.ComponentVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT component_id, vector, embedding_model, created_at FROM component_vectors WHERE embedding_model = ?`,
		embeddingModel)
	if err != nil {
		return nil, &StoreError{Kind: Io, Detail: err.Error()}
	}
	defer rows.Close()

	var out []domain.ComponentVector
	for rows.Next() {
		var idStr, model, createdAt string
		var blob []byte
		if err := rows.Scan(&idStr, &blob, &model, &createdAt); err != nil {
			return nil, &StoreError{Kind: Io, Detail: err.Error()}
		}
		id, err := domain.ParseComponentID(idStr)
		if err != nil {
			return nil, &StoreError{Kind: Io, Detail: err.Error()}
		}
		ts, _ := time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, domain.ComponentVector{
			ComponentID:    id,
			EmbeddingModel: model,
			Vector:         decodeVector(blob),
			CreatedAt:      ts,
		})
	}
	return out, nil
}

const selectComponentCols = `
	SELECT id, part_number, manufacturer, category, description, datasheet_url,
		specifications, footprint, price_info, availability, created_at, updated_at
	FROM components
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComponent(r rowScanner) (domain.Component, error) {
	var c domain.Component
	var idStr, specsJSON, priceJSON, availJSON, createdAt, updatedAt string
	err := r.Scan(&idStr, &c.PartNumber, &c.Manufacturer, &c.Category, &c.Description, &c.DatasheetURL,
		&specsJSON, &c.Footprint, &priceJSON, &availJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.Component{}, &StoreError{Kind: NotFound, Detail: "component not found"}
	}
	if err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}

	c.ID, err = domain.ParseComponentID(idStr)
	if err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}
	var wireSpecs map[string]wireSpecValue
	if err := json.Unmarshal([]byte(specsJSON), &wireSpecs); err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}
	c.Specifications = specsFromWire(wireSpecs)
	if err := json.Unmarshal([]byte(priceJSON), &c.Price); err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}
	if err := json.Unmarshal([]byte(availJSON), &c.Availability); err != nil {
		return domain.Component{}, &StoreError{Kind: Io, Detail: err.Error()}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return c, nil
}

func scanComponents(rows *sql.Rows) ([]domain.Component, error) {
	var out []domain.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
