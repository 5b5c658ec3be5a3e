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

const articleColumns = "id, work_item_id, content_key, format, title, summary, category, body, script, editor_id, thumbnail_url, image_urls_json, citations_json, created_at"

// maxCitations caps the origin references stored per article.
const maxCitations = 3

// PublishArticle inserts the article, its zeroed reaction counter row, and
// the completed work-item transition in a single transaction. Either all
// three writes land or none do.
func (s *Store) PublishArticle(ctx context.Context, article *Article) (*Article, error) {
	if article == nil {
		return nil, errors.New("article is nil")
	}
	if article.WorkItemID == 0 {
		return nil, errors.New("article work item id is required")
	}
	if strings.TrimSpace(article.ContentKey) == "" {
		return nil, errors.New("article content key is required")
	}

	citations := article.Citations
	if len(citations) > maxCitations {
		citations = citations[:maxCitations]
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return nil, fmt.Errorf("marshal citations: %w", err)
	}
	imageURLsJSON, err := json.Marshal(article.ImageURLs)
	if err != nil {
		return nil, fmt.Errorf("marshal image urls: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin publish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO articles (
            work_item_id, content_key, format, title, summary, category, body,
            script, editor_id, thumbnail_url, image_urls_json, citations_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.WorkItemID,
		article.ContentKey,
		string(article.Format),
		article.Title,
		nullableString(article.Summary),
		nullableString(article.Category),
		article.Body,
		nullableString(article.Script),
		nullableInt64(article.EditorID),
		nullableString(article.ThumbnailURL),
		string(imageURLsJSON),
		string(citationsJSON),
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}
	articleID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO reaction_counts (article_id, likes, hearts, laughs, surprises, sads)
         VALUES (?, 0, 0, 0, 0, 0)`,
		articleID,
	); err != nil {
		return nil, fmt.Errorf("insert reaction counts: %w", err)
	}

	result, err := tx.ExecContext(
		ctx,
		`UPDATE work_items SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		StatusCompleted,
		timestamp,
		article.WorkItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("complete work item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("work item %d not found", article.WorkItemID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit publish tx: %w", err)
	}

	return s.GetArticle(ctx, articleID)
}

// GetArticle fetches an article by identifier.
func (s *Store) GetArticle(ctx context.Context, id int64) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// ArticlesByIDs returns the articles matching the given identifiers in the
// order requested. Missing identifiers are omitted from the result.
func (s *Store) ArticlesByIDs(ctx context.Context, ids []int64) ([]*Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id IN (` + makePlaceholders(len(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*Article, len(ids))
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		byID[article.ID] = article
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*Article, 0, len(ids))
	for _, id := range ids {
		if article, ok := byID[id]; ok {
			ordered = append(ordered, article)
		}
	}
	return ordered, nil
}

// ArticlesByWorkItemIDs returns the generated article for each of the
// given work items, in the order requested. Work items without an
// article are omitted.
func (s *Store) ArticlesByWorkItemIDs(ctx context.Context, workItemIDs []int64) ([]*Article, error) {
	if len(workItemIDs) == 0 {
		return nil, nil
	}

	args := make([]any, len(workItemIDs))
	for i, id := range workItemIDs {
		args[i] = id
	}
	query := `SELECT ` + articleColumns + ` FROM articles WHERE work_item_id IN (` +
		makePlaceholders(len(workItemIDs)) + `) ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles by work items: %w", err)
	}
	defer rows.Close()

	byItem := make(map[int64]*Article, len(workItemIDs))
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		byItem[article.WorkItemID] = article
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*Article, 0, len(workItemIDs))
	for _, id := range workItemIDs {
		if article, ok := byItem[id]; ok {
			ordered = append(ordered, article)
		}
	}
	return ordered, nil
}

// ReactionCountsFor returns the reaction tallies for an article.
func (s *Store) ReactionCountsFor(ctx context.Context, articleID int64) (*ReactionCounts, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT article_id, likes, hearts, laughs, surprises, sads FROM reaction_counts WHERE article_id = ?`,
		articleID,
	)
	counts := &ReactionCounts{}
	err := row.Scan(&counts.ArticleID, &counts.Likes, &counts.Hearts, &counts.Laughs, &counts.Surprises, &counts.Sads)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reaction counts: %w", err)
	}
	return counts, nil
}

func scanArticle(scanner interface{ Scan(dest ...any) error }) (*Article, error) {
	var (
		id            int64
		workItemID    int64
		contentKey    string
		formatStr     string
		title         string
		summary       sql.NullString
		category      sql.NullString
		body          string
		script        sql.NullString
		editorID      sql.NullInt64
		thumbnailURL  sql.NullString
		imageURLsJSON sql.NullString
		citationsJSON sql.NullString
		createdRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&workItemID,
		&contentKey,
		&formatStr,
		&title,
		&summary,
		&category,
		&body,
		&script,
		&editorID,
		&thumbnailURL,
		&imageURLsJSON,
		&citationsJSON,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	article := &Article{
		ID:           id,
		WorkItemID:   workItemID,
		ContentKey:   contentKey,
		Format:       ArticleFormat(formatStr),
		Title:        title,
		Summary:      summary.String,
		Category:     category.String,
		Body:         body,
		Script:       script.String,
		EditorID:     editorID.Int64,
		ThumbnailURL: thumbnailURL.String,
	}
	if imageURLsJSON.Valid && imageURLsJSON.String != "" {
		if err := json.Unmarshal([]byte(imageURLsJSON.String), &article.ImageURLs); err != nil {
			return nil, fmt.Errorf("decode image urls: %w", err)
		}
	}
	if citationsJSON.Valid && citationsJSON.String != "" {
		if err := json.Unmarshal([]byte(citationsJSON.String), &article.Citations); err != nil {
			return nil, fmt.Errorf("decode citations: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		article.CreatedAt = created
	}
	return article, nil
}
