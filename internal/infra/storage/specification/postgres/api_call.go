package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/storage"
)

var _ specification.APICallCatalog = (*apiCallStore)(nil)

// apiCallStore implements specification.APICallCatalog using PostgreSQL.
type apiCallStore struct {
	db     *pgxpool.Pool
	tracer trace.Tracer
}

// NewAPICallStore creates a PostgreSQL-backed API call catalog.
func NewAPICallStore(pool *pgxpool.Pool, tracer trace.Tracer) *apiCallStore {
	return &apiCallStore{db: pool, tracer: tracer}
}

// CreateAPICall inserts call and sets its ID.
func (r *apiCallStore) CreateAPICall(ctx context.Context, call *specification.APICall) error {
	dbAttrs := storage.DBAttributes(
		attribute.String("api_call_name", call.Name),
		attribute.String("api_call_method", call.Method),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.create_api_call", dbAttrs, func(ctx context.Context) error {
		err := r.db.QueryRow(ctx,
			`INSERT INTO api_calls (name, method, path, request_example) VALUES ($1, $2, $3, $4) RETURNING id`,
			call.Name, call.Method, call.Path, nullableText(call.RequestExample),
		).Scan(&call.ID)
		if err != nil {
			return fmt.Errorf("failed to create api call: %w", err)
		}
		return nil
	})
}

// GetAPICall loads a cataloged API call by ID.
func (r *apiCallStore) GetAPICall(ctx context.Context, id int64) (*specification.APICall, error) {
	var call *specification.APICall
	dbAttrs := storage.DBAttributes(attribute.Int64("api_call_id", id))

	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.get_api_call", dbAttrs, func(ctx context.Context) error {
		var (
			c       specification.APICall
			example *string
		)
		err := r.db.QueryRow(ctx,
			`SELECT id, name, method, path, request_example FROM api_calls WHERE id = $1`, id,
		).Scan(&c.ID, &c.Name, &c.Method, &c.Path, &example)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return specification.ErrAPICallNotFound
			}
			return fmt.Errorf("failed to get api call: %w", err)
		}
		c.RequestExample = deref(example)
		call = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return call, nil
}
