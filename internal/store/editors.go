package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// AddEditor inserts an editor persona with its category bindings. Existing
// editors with the same name are replaced, which keeps seeding idempotent.
func (s *Store) AddEditor(ctx context.Context, editor *Editor) (*Editor, error) {
	if editor == nil {
		return nil, errors.New("editor is nil")
	}
	if strings.TrimSpace(editor.Name) == "" {
		return nil, errors.New("editor name is required")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin editor tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO editors (name, persona, created_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET persona = excluded.persona`,
		editor.Name,
		editor.Persona,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert editor: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if id == 0 {
		row := tx.QueryRowContext(ctx, `SELECT id FROM editors WHERE name = ?`, editor.Name)
		if err := row.Scan(&id); err != nil {
			return nil, fmt.Errorf("lookup editor id: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM editor_categories WHERE editor_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear editor categories: %w", err)
	}
	for _, category := range editor.Categories {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO editor_categories (editor_id, category) VALUES (?, ?)`,
			id,
			category,
		); err != nil {
			return nil, fmt.Errorf("insert editor category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit editor tx: %w", err)
	}

	return s.GetEditor(ctx, id)
}

// GetEditor fetches an editor and its categories by identifier.
func (s *Store) GetEditor(ctx context.Context, id int64) (*Editor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, persona, created_at FROM editors WHERE id = ?`, id)
	editor, err := scanEditor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get editor: %w", err)
	}
	if err := s.loadEditorCategories(ctx, editor); err != nil {
		return nil, err
	}
	return editor, nil
}

// ListEditors returns every editor, optionally filtered to a category.
func (s *Store) ListEditors(ctx context.Context, category string) ([]*Editor, error) {
	builder := queryBuilder.
		Select("e.id", "e.name", "e.persona", "e.created_at").
		From("editors e").
		OrderBy("e.id")
	if category = strings.TrimSpace(category); category != "" {
		builder = builder.
			Join("editor_categories ec ON ec.editor_id = e.id").
			Where(sq.Eq{"ec.category": category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build editor query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list editors: %w", err)
	}
	defer rows.Close()

	var editors []*Editor
	for rows.Next() {
		editor, err := scanEditor(rows)
		if err != nil {
			return nil, err
		}
		editors = append(editors, editor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, editor := range editors {
		if err := s.loadEditorCategories(ctx, editor); err != nil {
			return nil, err
		}
	}
	return editors, nil
}

func (s *Store) loadEditorCategories(ctx context.Context, editor *Editor) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT category FROM editor_categories WHERE editor_id = ? ORDER BY category`,
		editor.ID,
	)
	if err != nil {
		return fmt.Errorf("load editor categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return err
		}
		editor.Categories = append(editor.Categories, category)
	}
	return rows.Err()
}

func scanEditor(scanner interface{ Scan(dest ...any) error }) (*Editor, error) {
	var (
		id         int64
		name       string
		persona    string
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &persona, &createdRaw); err != nil {
		return nil, err
	}
	editor := &Editor{ID: id, Name: name, Persona: persona}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		editor.CreatedAt = created
	}
	return editor, nil
}
