package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ChatRecord is one persisted interaction. ContextData carries the
// routing metadata (tool plus its parameters) as free-form JSON.
type ChatRecord struct {
	ID                int64             `json:"id"`
	UserQuery         string            `json:"user_query"`
	AssistantResponse string            `json:"assistant_response"`
	ToolUsed          string            `json:"tool_used,omitempty"`
	ContextData       map[string]string `json:"context_data,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
}

// Append inserts a new interaction and returns its assigned ID.
// IDs are strictly increasing; the row is durable once this returns.
func (s *Store) Append(ctx context.Context, rec *ChatRecord) (int64, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	var contextJSON sql.NullString
	if len(rec.ContextData) > 0 {
		b, err := json.Marshal(rec.ContextData)
		if err != nil {
			return 0, fmt.Errorf("marshal context data: %w", err)
		}
		contextJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (user_query, assistant_response, tool_used, context_data, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		rec.UserQuery, rec.AssistantResponse, nullable(rec.ToolUsed), contextJSON,
		rec.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert chat record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id

	s.log.Debug().Int64("id", id).Str("tool", rec.ToolUsed).Msg("chat recorded")
	return id, nil
}

// All returns records newest-first. A limit <= 0 returns everything.
func (s *Store) All(ctx context.Context, limit int) ([]ChatRecord, error) {
	query := `
		SELECT id, user_query, assistant_response, tool_used, context_data, timestamp
		FROM chat_history
		ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Search returns records whose user query contains the substring,
// matched case-insensitively, newest-first.
func (s *Store) Search(ctx context.Context, substr string, limit int) ([]ChatRecord, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_query, assistant_response, tool_used, context_data, timestamp
		FROM chat_history
		WHERE lower(user_query) LIKE '%' || lower(?) || '%'
		ORDER BY id DESC
		LIMIT ?`,
		substr, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search chat history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of stored interactions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_history").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chat history: %w", err)
	}
	return n, nil
}

// Clear removes all stored interactions and reports how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chat_history")
	if err != nil {
		return 0, fmt.Errorf("clear chat history: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	s.log.Info().Int64("removed", n).Msg("chat history cleared")
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]ChatRecord, error) {
	var records []ChatRecord
	for rows.Next() {
		var (
			rec         ChatRecord
			toolUsed    sql.NullString
			contextData sql.NullString
			ts          string
		)
		if err := rows.Scan(&rec.ID, &rec.UserQuery, &rec.AssistantResponse, &toolUsed, &contextData, &ts); err != nil {
			return nil, fmt.Errorf("scan chat record: %w", err)
		}

		rec.ToolUsed = toolUsed.String
		if contextData.Valid && contextData.String != "" {
			if err := json.Unmarshal([]byte(contextData.String), &rec.ContextData); err != nil {
				// Tolerate malformed metadata; the record text still matters.
				rec.ContextData = nil
			}
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = parsed
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat records: %w", err)
	}
	return records, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
