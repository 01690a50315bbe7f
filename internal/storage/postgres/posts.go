package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/storage"
)

const postColumns = `id, author_id, title, content, images, created_at, updated_at`

// sortColumns — белый список колонок сортировки; в ORDER BY попадает только значение из него.
var sortColumns = map[string]string{
	storage.SortCreatedAt: "created_at",
	storage.SortUpdatedAt: "updated_at",
	storage.SortTitle:     "title",
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	if err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&post.Images,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if post.Images == nil {
		post.Images = []string{}
	}

	return &post, nil
}

// CreatePost вставляет новый пост.
// Ошибки: storage.ErrAlreadyExists при конфликте id, storage.ErrNotFound при несуществующем авторе.
func (s *Storage) CreatePost(ctx context.Context, post *models.Post) error {
	const op = "storage.postgres.CreatePost"

	images := post.Images
	if images == nil {
		images = []string{}
	}

	query := `
		INSERT INTO posts(id, author_id, title, content, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		post.ID,
		post.AuthorID,
		post.Title,
		post.Content,
		images,
		post.CreatedAt,
		post.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
			case pgerrcode.ForeignKeyViolation:
				return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
			}
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// PostByID возвращает пост по id.
func (s *Storage) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "storage.postgres.PostByID"

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

// ListPosts возвращает страницу постов, отсортированную по убыванию params.SortBy.
// Неизвестная колонка сортировки — storage.ErrInvalidArgument.
func (s *Storage) ListPosts(ctx context.Context, params storage.ListParams) ([]models.Post, error) {
	const op = "storage.postgres.ListPosts"

	column, ok := sortColumns[params.SortBy]
	if !ok || params.Limit <= 0 || params.Offset < 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM posts
		ORDER BY %s DESC, id DESC
		LIMIT $1 OFFSET $2
	`, postColumns, column)

	rows, err := s.db.Query(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0, params.Limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

// UpdatePost обновляет пост автора и возвращает его новое состояние
// вместе с ключами изображений до обновления.
func (s *Storage) UpdatePost(ctx context.Context, id, authorID uuid.UUID, update storage.PostUpdate) (*models.Post, []string, error) {
	const op = "storage.postgres.UpdatePost"

	query := `
		UPDATE posts p
		SET title      = COALESCE($3, p.title),
		    content    = COALESCE($4, p.content),
		    images     = COALESCE($5, p.images),
		    updated_at = now()
		FROM (SELECT id, images FROM posts WHERE id = $1 AND author_id = $2 FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING p.id, p.author_id, p.title, p.content, p.images, p.created_at, p.updated_at, old.images
	`

	var (
		post      models.Post
		oldImages []string
	)

	err := s.db.QueryRow(ctx, query, id, authorID, update.Title, update.Content, update.Images).Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&post.Images,
		&post.CreatedAt,
		&post.UpdatedAt,
		&oldImages,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if post.Images == nil {
		post.Images = []string{}
	}

	return &post, oldImages, nil
}

// DeletePost удаляет пост автора и возвращает удалённую запись.
func (s *Storage) DeletePost(ctx context.Context, id, authorID uuid.UUID) (*models.Post, error) {
	const op = "storage.postgres.DeletePost"

	query := `DELETE FROM posts WHERE id = $1 AND author_id = $2 RETURNING ` + postColumns

	post, err := scanPost(s.db.QueryRow(ctx, query, id, authorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}
