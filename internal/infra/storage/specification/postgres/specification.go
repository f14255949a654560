package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/storage"
)

var _ specification.Repository = (*specificationStore)(nil)

// specificationStore implements specification.Repository using PostgreSQL.
type specificationStore struct {
	db     *pgxpool.Pool
	tracer trace.Tracer
}

// NewSpecificationStore creates a PostgreSQL-backed specification repository
// with tracing.
func NewSpecificationStore(pool *pgxpool.Pool, tracer trace.Tracer) *specificationStore {
	return &specificationStore{db: pool, tracer: tracer}
}

const insertSpecification = `
INSERT INTO specifications (
	test_project_id, title, description, input_type, method, path,
	test_objective, request_example, requires_auth, approve_before_generation,
	auth_profile_id, api_call_id, tag_ids, status, created_by, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`

// CreateSpecification inserts spec and assigns the generated ID to it.
func (r *specificationStore) CreateSpecification(ctx context.Context, spec *specification.Specification) error {
	dbAttrs := storage.DBAttributes(
		attribute.String("title", spec.Title()),
		attribute.String("status", spec.Status().String()),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.create_specification", dbAttrs, func(ctx context.Context) error {
		var id int64
		err := r.db.QueryRow(ctx, insertSpecification,
			spec.TestProjectID(),
			spec.Title(),
			nullableText(spec.Description()),
			spec.InputType().String(),
			nullableText(spec.Method()),
			nullableText(spec.Path()),
			nullableText(spec.TestObjective()),
			nullableText(spec.RequestExample()),
			spec.RequiresAuth(),
			spec.ApproveBeforeGeneration(),
			spec.AuthProfileID(),
			spec.APICallID(),
			spec.TagIDs(),
			spec.Status().String(),
			nullableText(spec.CreatedBy()),
			spec.CreatedAt(),
			spec.UpdatedAt(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create specification: %w", err)
		}

		return spec.AssignID(id)
	})
}

const selectSpecification = `
SELECT
	s.id, s.test_project_id, s.title, s.description, s.input_type, s.method, s.path,
	s.test_objective, s.request_example, s.requires_auth, s.approve_before_generation,
	s.auth_profile_id, s.api_call_id, s.tag_ids, s.status, s.created_by, s.created_at, s.updated_at,
	a.name, a.method, a.path, a.request_example
FROM specifications s
LEFT JOIN api_calls a ON a.id = s.api_call_id
WHERE s.id = $1`

// GetSpecification loads a specification along with its linked API call.
func (r *specificationStore) GetSpecification(ctx context.Context, id int64) (*specification.Specification, error) {
	var spec *specification.Specification
	dbAttrs := storage.DBAttributes(attribute.Int64("specification_id", id))

	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.get_specification", dbAttrs, func(ctx context.Context) error {
		var (
			p                                             specification.ReconstructParams
			description, method, path, objective, example *string
			createdBy                                     *string
			inputType, status                             string
			callName, callMethod, callPath, callExample   *string
		)

		err := r.db.QueryRow(ctx, selectSpecification, id).Scan(
			&p.ID, &p.TestProjectID, &p.Title, &description, &inputType, &method, &path,
			&objective, &example, &p.RequiresAuth, &p.ApproveBeforeGeneration,
			&p.AuthProfileID, &p.APICallID, &p.TagIDs, &status, &createdBy, &p.CreatedAt, &p.UpdatedAt,
			&callName, &callMethod, &callPath, &callExample,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return specification.ErrSpecificationNotFound
			}
			return fmt.Errorf("failed to get specification: %w", err)
		}

		p.Description = deref(description)
		p.Method = deref(method)
		p.Path = deref(path)
		p.TestObjective = deref(objective)
		p.RequestExample = deref(example)
		p.CreatedBy = deref(createdBy)
		p.InputType = specification.ParseInputType(inputType)
		p.Status = specification.ParseStatus(status)
		if p.APICallID != nil && callName != nil {
			p.APICall = &specification.APICall{
				ID:             *p.APICallID,
				Name:           *callName,
				Method:         deref(callMethod),
				Path:           deref(callPath),
				RequestExample: deref(callExample),
			}
		}

		spec = specification.ReconstructSpecification(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return spec, nil
}

const updateSpecificationStatus = `
UPDATE specifications
SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2`

// UpdateStatus applies a compare-and-set on the stored status.
func (r *specificationStore) UpdateStatus(
	ctx context.Context,
	id int64,
	from, to specification.Status,
) error {
	dbAttrs := storage.DBAttributes(
		attribute.Int64("specification_id", id),
		attribute.String("from_status", from.String()),
		attribute.String("to_status", to.String()),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.update_specification_status", dbAttrs, func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, updateSpecificationStatus, id, from.String(), to.String(), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to update specification status: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return nil
		}

		var exists bool
		if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM specifications WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check specification existence: %w", err)
		}
		if !exists {
			return specification.ErrSpecificationNotFound
		}
		return specification.ErrStatusConflict
	})
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
