package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const workItemColumns = "id, title, body, press, origin_url, category, status, error_message, created_at, updated_at"

// AddWorkItem enqueues a source article for generation.
func (s *Store) AddWorkItem(ctx context.Context, item *WorkItem) (*WorkItem, error) {
	if item == nil {
		return nil, errors.New("work item is nil")
	}
	if strings.TrimSpace(item.Title) == "" {
		return nil, errors.New("work item title is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	status := item.Status
	if status == "" {
		status = StatusPending
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO work_items (
            title, body, press, origin_url, category, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title,
		item.Body,
		nullableString(item.Press),
		nullableString(item.OriginURL),
		nullableString(item.Category),
		status,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert work item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetWorkItem(ctx, id)
}

// GetWorkItem fetches a work item by identifier.
func (s *Store) GetWorkItem(ctx context.Context, id int64) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workItemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanWorkItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item: %w", err)
	}
	return item, nil
}

// ListWorkItems returns work items filtered by status set (or all items when
// no status is provided), ordered by creation time.
func (s *Store) ListWorkItems(ctx context.Context, statuses ...Status) ([]*WorkItem, error) {
	builder := queryBuilder.
		Select(strings.Split(workItemColumns, ", ")...).
		From("work_items").
		OrderBy("created_at", "id")
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}
		builder = builder.Where(sq.Eq{"status": values})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var items []*WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Claim atomically transitions the claimable subset of the given work items
// to in_progress and returns the claimed identifiers in ascending order.
// Only pending and failed items are claimable; items already in progress,
// completed, or unknown are silently skipped. Concurrent callers never claim
// the same item twice. An empty result is not an error.
func (s *Store) Claim(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	// BEGIN IMMEDIATE takes the write lock up front so the read-check and
	// update are a single atomic step across processes sharing the file.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusInProgress, time.Now().UTC().Format(time.RFC3339Nano), StatusPending, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE work_items
        SET status = ?, error_message = NULL, updated_at = ?
        WHERE status IN (?, ?) AND id IN (` + makePlaceholders(len(ids)) + `)
        RETURNING id`

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim work items: %w", err)
	}

	var claimed []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan claimed id: %w", err)
		}
		claimed = append(claimed, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate claimed ids: %w", err)
	}
	rows.Close()

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	committed = true

	sort.Slice(claimed, func(i, j int) bool { return claimed[i] < claimed[j] })
	return claimed, nil
}

// MarkFailed records a generation failure in its own transaction so the
// status change survives independently of the failed pipeline's work.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE work_items SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark work item failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("work item %d not found", id)
	}
	return nil
}

// RetryFailed moves failed items back to pending for reclaiming. With no ids
// every failed item is reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE work_items SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE work_items
        SET status = ?, error_message = NULL, updated_at = ?
        WHERE id IN (` + makePlaceholders(len(ids)) + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckInProgress returns in-flight items back to pending, used at
// daemon startup to recover from crashes.
func (s *Store) ResetStuckInProgress(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE work_items SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of work items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM work_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("work item stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates work-item state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusInProgress:
			health.InProgress += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		}
	}
	return health, nil
}

// ClearCompleted removes only completed work items.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed work items.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_items WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

func scanWorkItem(scanner interface{ Scan(dest ...any) error }) (*WorkItem, error) {
	var (
		id           int64
		title        string
		body         string
		press        sql.NullString
		originURL    sql.NullString
		category     sql.NullString
		statusStr    string
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&body,
		&press,
		&originURL,
		&category,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &WorkItem{
		ID:           id,
		Title:        title,
		Body:         body,
		Press:        press.String,
		OriginURL:    originURL.String,
		Category:     category.String,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}
