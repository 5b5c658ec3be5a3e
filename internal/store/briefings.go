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

const briefingColumns = "id, title, audio_url, script, duration_seconds, article_ids_json, timeline_json, created_at"

// AddBriefing inserts a generated audio briefing.
func (s *Store) AddBriefing(ctx context.Context, briefing *Briefing) (*Briefing, error) {
	if briefing == nil {
		return nil, errors.New("briefing is nil")
	}
	if strings.TrimSpace(briefing.AudioURL) == "" {
		return nil, errors.New("briefing audio url is required")
	}

	articleIDsJSON, err := json.Marshal(briefing.ArticleIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal article ids: %w", err)
	}
	timelineJSON, err := json.Marshal(briefing.Timeline)
	if err != nil {
		return nil, fmt.Errorf("marshal timeline: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO briefings (
            title, audio_url, script, duration_seconds, article_ids_json, timeline_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		briefing.Title,
		briefing.AudioURL,
		briefing.Script,
		briefing.DurationSeconds,
		string(articleIDsJSON),
		string(timelineJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert briefing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetBriefing(ctx, id)
}

// GetBriefing fetches a briefing by identifier.
func (s *Store) GetBriefing(ctx context.Context, id int64) (*Briefing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+briefingColumns+` FROM briefings WHERE id = ?`, id)
	briefing, err := scanBriefing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get briefing: %w", err)
	}
	return briefing, nil
}

// ListBriefings returns briefings newest first.
func (s *Store) ListBriefings(ctx context.Context, limit int) ([]*Briefing, error) {
	query := `SELECT ` + briefingColumns + ` FROM briefings ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list briefings: %w", err)
	}
	defer rows.Close()

	var briefings []*Briefing
	for rows.Next() {
		briefing, err := scanBriefing(rows)
		if err != nil {
			return nil, err
		}
		briefings = append(briefings, briefing)
	}
	return briefings, rows.Err()
}

func scanBriefing(scanner interface{ Scan(dest ...any) error }) (*Briefing, error) {
	var (
		id             int64
		title          string
		audioURL       string
		script         string
		duration       float64
		articleIDsJSON string
		timelineJSON   string
		createdRaw     sql.NullString
	)
	if err := scanner.Scan(&id, &title, &audioURL, &script, &duration, &articleIDsJSON, &timelineJSON, &createdRaw); err != nil {
		return nil, err
	}

	briefing := &Briefing{
		ID:              id,
		Title:           title,
		AudioURL:        audioURL,
		Script:          script,
		DurationSeconds: duration,
	}
	if articleIDsJSON != "" {
		if err := json.Unmarshal([]byte(articleIDsJSON), &briefing.ArticleIDs); err != nil {
			return nil, fmt.Errorf("decode article ids: %w", err)
		}
	}
	if timelineJSON != "" {
		if err := json.Unmarshal([]byte(timelineJSON), &briefing.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		briefing.CreatedAt = created
	}
	return briefing, nil
}
