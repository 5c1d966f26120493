package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const categoryColumns = "id, name, destination, description, extensions_json, created_at, updated_at"

func scanCategory(scanner interface{ Scan(dest ...any) error }) (*Category, error) {
	var (
		id          int64
		name        string
		destination string
		description sql.NullString
		extensions  sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &name, &destination, &description, &extensions, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	category := &Category{
		ID:          id,
		Name:        name,
		Destination: destination,
		Description: description.String,
	}
	if extensions.Valid && extensions.String != "" {
		if err := json.Unmarshal([]byte(extensions.String), &category.Extensions); err != nil {
			return nil, fmt.Errorf("decode extensions for category %d: %w", id, err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		category.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		category.UpdatedAt = updated
	}
	return category, nil
}

func encodeExtensions(extensions []string) (any, error) {
	if len(extensions) == 0 {
		return nil, nil
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	if len(normalized) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode extensions: %w", err)
	}
	return string(encoded), nil
}

// AddCategory registers a destination category. Names are unique without
// regard to case; registration order decides ties during matching.
func (s *Store) AddCategory(ctx context.Context, name, destination, description string, extensions []string) (*Category, error) {
	ctx = ensureContext(ctx)
	encoded, err := encodeExtensions(extensions)
	if err != nil {
		return nil, err
	}
	now := timeString(time.Now())
	res, err := s.execWithRetry(ctx,
		"INSERT INTO categories (name, destination, description, extensions_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		name, destination, nullableString(description), encoded, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %s: %w", name, ErrDuplicate)
		}
		return nil, fmt.Errorf("add category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add category id: %w", err)
	}
	return s.CategoryByID(ctx, id)
}

// CategoryByID fetches one category.
func (s *Store) CategoryByID(ctx context.Context, id int64) (*Category, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	category, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	return category, nil
}

// ListCategories returns every category in registration order, which is the
// order matching ties are broken in.
func (s *Store) ListCategories(ctx context.Context) ([]*Category, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// UpdateCategory rewrites a category's destination, description, and
// extension list. The name and registration order stay fixed.
func (s *Store) UpdateCategory(ctx context.Context, id int64, destination, description string, extensions []string) (*Category, error) {
	ctx = ensureContext(ctx)
	encoded, err := encodeExtensions(extensions)
	if err != nil {
		return nil, err
	}
	res, err := s.execWithRetry(ctx,
		"UPDATE categories SET destination = ?, description = ?, extensions_json = ?, updated_at = ? WHERE id = ?",
		destination, nullableString(description), encoded, timeString(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return s.CategoryByID(ctx, id)
}

// RemoveCategory deletes a category registration.
func (s *Store) RemoveCategory(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove category: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}
