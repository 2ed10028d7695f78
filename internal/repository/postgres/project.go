package postgres

import (
	"context"

	"portal-service/internal/domain/project"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
)

type ProjectRepository struct {
	db *DB
}

func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create is used by intake flows and tests; new projects start at StatusNew.
func (r *ProjectRepository) Create(ctx context.Context, input project.CreateProjectInput) (*project.Project, error) {
	query := `
		INSERT INTO projects (id, client_id, name, price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, client_id, name, price, status, created_at, updated_at
	`

	p := &project.Project{}
	err := r.db.Pool.QueryRow(ctx, query, uuid.New(), input.ClientID, input.Name, input.Price, project.StatusNew).Scan(
		&p.ID, &p.ClientID, &p.Name, &p.Price, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("project with this name already exists")
		}
		return nil, errFailedCreateProject(err)
	}

	return p, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	query := `
		SELECT id, client_id, name, price, status, created_at, updated_at
		FROM projects WHERE id = $1
	`

	p := &project.Project{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ClientID, &p.Name, &p.Price, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errProjectNotFound)
		}
		return nil, errFailedGetProject(err)
	}

	return p, nil
}

// AdvanceStatus sets status and updated_at in one write, only while the
// project still holds one of input.From. It reports whether a row changed.
func (r *ProjectRepository) AdvanceStatus(ctx context.Context, input project.AdvanceStatusInput) (bool, error) {
	if err := input.To.Validate(); err != nil {
		return false, apperrors.Validation(err.Error())
	}
	if len(input.From) == 0 {
		return false, nil
	}

	from := make([]string, len(input.From))
	for i, s := range input.From {
		from[i] = string(s)
	}

	query := `
		UPDATE projects
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`

	tag, err := r.db.Pool.Exec(ctx, query, input.ProjectID, input.To, from)
	if err != nil {
		return false, errFailedUpdateProject(err)
	}

	return tag.RowsAffected() == 1, nil
}
