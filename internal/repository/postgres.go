package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"core/internal/model"
	"core/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Postgres regex word boundaries keep "women" from matching "men".
const (
	malePattern   = `\m(men|mens|men's|male|boys?)\M`
	femalePattern = `\m(women|womens|women's|female|ladies|girls?)\M`
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

const productColumns = `
	id, asin, title, category, brand, price, list_price, stars, reviews_count,
	bought_in_last_month, is_best_seller, image_url, product_url, description,
	features, attributes, created_at, updated_at`

// SearchProducts performs a filtered catalog search. When a query vector
// is supplied results are ordered by embedding distance; otherwise by
// full-text rank against the search text.
func (r *PostgresRepository) SearchProducts(
	ctx context.Context,
	searchText string,
	queryVec *pgvector.Vector,
	filters model.SearchFilters,
	featureTerms []string,
	limit, offset int,
) ([]model.Product, int, error) {
	whereClauses := []string{"is_active = true"}
	args := []interface{}{}
	argIndex := 1

	if filters.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filters.MinPrice)
		argIndex++
	}
	if filters.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filters.MaxPrice)
		argIndex++
	}
	if filters.MinRating != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("stars >= $%d", argIndex))
		args = append(args, *filters.MinRating)
		argIndex++
	}
	switch filters.Gender {
	case model.GenderMale:
		whereClauses = append(whereClauses, fmt.Sprintf("(title ~* $%d OR category ~* $%d)", argIndex, argIndex))
		args = append(args, malePattern)
		argIndex++
	case model.GenderFemale:
		whereClauses = append(whereClauses, fmt.Sprintf("(title ~* $%d OR category ~* $%d)", argIndex, argIndex))
		args = append(args, femalePattern)
		argIndex++
	}
	if len(featureTerms) > 0 {
		featureConds, featureParams, newIndex := utils.BuildFeatureConditions(featureTerms, argIndex)
		whereClauses = append(whereClauses, featureConds...)
		args = append(args, featureParams...)
		argIndex = newIndex
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	var selectQuery string
	if queryVec != nil {
		selectQuery = fmt.Sprintf(`
			SELECT %s,
				ts_rank(search_vector, plainto_tsquery('english', $%d)) as text_rank
			FROM products
			WHERE %s AND embedding IS NOT NULL
			ORDER BY embedding <=> $%d
			LIMIT $%d OFFSET $%d
		`, productColumns, argIndex, whereClause, argIndex+1, argIndex+2, argIndex+3)
		args = append(args, searchText, *queryVec, limit, offset)
	} else {
		selectQuery = fmt.Sprintf(`
			SELECT %s,
				ts_rank(search_vector, plainto_tsquery('english', $%d)) as text_rank
			FROM products
			WHERE %s
			ORDER BY text_rank DESC, reviews_count DESC NULLS LAST
			LIMIT $%d OFFSET $%d
		`, productColumns, argIndex, whereClause, argIndex+1, argIndex+2)
		args = append(args, searchText, limit, offset)
	}

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// GetProductByASIN retrieves a single product
func (r *PostgresRepository) GetProductByASIN(ctx context.Context, asin string) (*model.Product, error) {
	var product model.Product
	query := fmt.Sprintf(`SELECT %s FROM products WHERE asin = $1 AND is_active = true`, productColumns)
	err := r.db.GetContext(ctx, &product, query, asin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// UpdateEmbedding updates the embedding vector for a product
func (r *PostgresRepository) UpdateEmbedding(ctx context.Context, asin string, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	query := `UPDATE products SET embedding = $1, updated_at = NOW() WHERE asin = $2`
	if _, err := r.db.ExecContext(ctx, query, vec, asin); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	return nil
}

// BatchUpdateEmbeddings updates embeddings for multiple products
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errors []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE products SET embedding = $1, updated_at = NOW() WHERE asin = $2`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		if _, err := stmt.ExecContext(ctx, vec, item.ASIN); err != nil {
			errors = append(errors, fmt.Sprintf("asin %s: %v", item.ASIN, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}

	return success, errors
}

// LogSearch logs a completed search for offline analysis
func (r *PostgresRepository) LogSearch(ctx context.Context, sessionID, query, cleanQuery string, filters model.SearchFilters, cached bool, resultCount int, asins []string, responseTimeMs int) error {
	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to marshal filters: %w", err)
	}
	logQuery := `
		INSERT INTO search_logs (session_id, query, clean_query, filters, cached, result_count, returned_asins, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, logQuery, sessionID, query, cleanQuery, filterJSON, cached, resultCount, pq.Array(asins), responseTimeMs)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}
