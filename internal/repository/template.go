package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"promptsculptor/internal/models"
)

type TemplateRepo interface {
	Create(ctx context.Context, t *models.PromptTemplate) (*models.PromptTemplate, error)
	GetAll(ctx context.Context, limit, offset int, tag string, onlyPublic bool) ([]*models.PromptTemplate, error)
	GetByID(ctx context.Context, id int64) (*models.PromptTemplate, error)
	Update(ctx context.Context, t *models.PromptTemplate) error
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type templateRepo struct{ db *pgxpool.Pool }

func NewTemplateRepo(db *pgxpool.Pool) TemplateRepo { return &templateRepo{db: db} }

func (r *templateRepo) Create(ctx context.Context, t *models.PromptTemplate) (*models.PromptTemplate, error) {
	tagsJSON, _ := json.Marshal(t.Tags)

	const q = `
		INSERT INTO prompt_templates (owner_id, title, description, content, tags, is_public)
		VALUES ($1,$2,$3,$4,$5::jsonb,$6)
		RETURNING id, owner_id, title, description, content, is_public, created_at, updated_at, tags
	`

	var out models.PromptTemplate
	var tagsRaw []byte
	err := r.db.QueryRow(ctx, q,
		t.OwnerID,     // *int64 (nullable)
		t.Title,       // string
		t.Description, // *string (nullable)
		t.Content,     // string
		tagsJSON,      // jsonb
		t.IsPublic,    // bool
	).Scan(
		&out.ID,
		&out.OwnerID,
		&out.Title,
		&out.Description,
		&out.Content,
		&out.IsPublic,
		&out.CreatedAt,
		&out.UpdatedAt,
		&tagsRaw,
	)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(tagsRaw, &out.Tags)
	return &out, nil
}

func (r *templateRepo) GetAll(ctx context.Context, limit, offset int, tag string, onlyPublic bool) ([]*models.PromptTemplate, error) {
	const qBase = `
		SELECT id, owner_id, title, description, content, is_public, created_at, updated_at, tags
		FROM prompt_templates
	`
	where := []string{}
	args := []interface{}{}
	i := 1

	if onlyPublic {
		where = append(where, fmt.Sprintf("is_public = $%d", i))
		args = append(args, true)
		i++
	}
	if tag != "" {
		// tags — jsonb-массив строк: ["a","b"]
		where = append(where, fmt.Sprintf(`
			EXISTS (
				SELECT 1
				FROM jsonb_array_elements_text(tags) AS t(val)
				WHERE t.val = $%d
			)
		`, i))
		args = append(args, tag)
		i++
	}

	sql := qBase
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.PromptTemplate
	for rows.Next() {
		var t models.PromptTemplate
		var tagsRaw []byte
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Content,
			&t.IsPublic, &t.CreatedAt, &t.UpdatedAt, &tagsRaw,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(tagsRaw, &t.Tags)
		list = append(list, &t)
	}
	return list, nil
}

func (r *templateRepo) GetByID(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	const q = `
		SELECT id, owner_id, title, description, content, is_public, created_at, updated_at, tags
		FROM prompt_templates WHERE id=$1
	`
	var t models.PromptTemplate
	var tagsRaw []byte
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Content,
		&t.IsPublic, &t.CreatedAt, &t.UpdatedAt, &tagsRaw,
	); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(tagsRaw, &t.Tags)
	return &t, nil
}

func (r *templateRepo) Update(ctx context.Context, t *models.PromptTemplate) error {
	tagsJSON, _ := json.Marshal(t.Tags)
	const q = `
		UPDATE prompt_templates
		SET title=$1,
		    description=$2,
		    content=$3,
		    tags=$4::jsonb,
		    is_public=$5,
		    updated_at=NOW()
		WHERE id=$6
	`
	_, err := r.db.Exec(ctx, q, t.Title, t.Description, t.Content, tagsJSON, t.IsPublic, t.ID)
	return err
}

func (r *templateRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM prompt_templates WHERE id=$1", id)
	return err
}

func (r *templateRepo) Exists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM prompt_templates WHERE id = $1)`
	var ok bool
	if err := r.db.QueryRow(ctx, q, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
