package models

import "time"

// PromptTemplate — сохранённый шаблон промпта.
type PromptTemplate struct {
	ID          int64     `db:"id"          json:"id"`
	OwnerID     *int64    `db:"owner_id"    json:"ownerId,omitempty"`
	Title       string    `db:"title"       json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Content     string    `db:"content"     json:"content"`
	Tags        []string  `db:"-"           json:"tags"`
	IsPublic    bool      `db:"is_public"   json:"isPublic"`
	CreatedAt   time.Time `db:"created_at"  json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updatedAt"`
}

// swagger:model CreateTemplateRequest
type CreateTemplateRequest struct {
	Title       string   `json:"title"       example:"Резюме технической статьи"`
	Description string   `json:"description" example:"Короткое описание для каталога"`
	Content     string   `json:"content"     example:"Суммаризируй текст: {{input}}"`
	Tags        []string `json:"tags"        example:"summary,article"`
	IsPublic    bool     `json:"isPublic"`
}
