// Package store persists users, meetings, transcripts and chat history in
// Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/fridayhq/friday/models"
)

type Store struct {
	DB *sql.DB
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2) RETURNING id`, email, hash).Scan(&id)
	return id, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Meeting operations
func (s *Store) CreateMeeting(ctx context.Context, m models.Meeting) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO meetings (owner_id, meeting_date, meeting_time, meeting_link, drive_folder_link)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		m.OwnerID, m.Date, m.Time, m.MeetingLink, m.DriveFolderLink).Scan(&id)
	return id, err
}

func (s *Store) GetMeeting(ctx context.Context, id, ownerID string) (models.Meeting, error) {
	var m models.Meeting
	err := s.DB.QueryRowContext(ctx, `
SELECT id, owner_id, meeting_date, meeting_time, meeting_link, drive_folder_link, created_at
FROM meetings WHERE id=$1 AND owner_id=$2`, id, ownerID).
		Scan(&m.ID, &m.OwnerID, &m.Date, &m.Time, &m.MeetingLink, &m.DriveFolderLink, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Meeting{}, models.ErrMeetingNotFound
	}
	return m, err
}

func (s *Store) ListMeetings(ctx context.Context, ownerID string) ([]models.Meeting, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, owner_id, meeting_date, meeting_time, meeting_link, drive_folder_link, created_at
FROM meetings WHERE owner_id=$1 ORDER BY meeting_date DESC, meeting_time DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Meeting
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Date, &m.Time, &m.MeetingLink, &m.DriveFolderLink, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteMeeting(ctx context.Context, id, ownerID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM meetings WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrMeetingNotFound
	}
	return nil
}

// Transcript operations. Live updates accumulate as ordered segments; the
// finalized text is stored on the meeting row when the session ends.

// AppendTranscriptSegment stores one caption segment and reports whether a
// row was written. Blank segments are skipped, and so is a segment identical
// to the last stored one, so client retries and repeated partial updates
// never duplicate transcript text.
func (s *Store) AppendTranscriptSegment(ctx context.Context, meetingID, speaker, content string) (bool, error) {
	if strings.TrimSpace(content) == "" {
		return false, nil
	}
	var lastSpeaker, lastContent string
	err := s.DB.QueryRowContext(ctx, `
SELECT speaker, content FROM transcript_segments WHERE meeting_id=$1 ORDER BY id DESC LIMIT 1`, meetingID).
		Scan(&lastSpeaker, &lastContent)
	if err == nil && lastSpeaker == speaker && lastContent == content {
		return false, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO transcript_segments (meeting_id, speaker, content) VALUES ($1,$2,$3)`,
		meetingID, speaker, content); err != nil {
		return false, err
	}
	return true, nil
}

// LoadTranscript concatenates the stored segments in capture order.
func (s *Store) LoadTranscript(ctx context.Context, meetingID string) (string, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT speaker, content FROM transcript_segments WHERE meeting_id=$1 ORDER BY id`, meetingID)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var b strings.Builder
	for rows.Next() {
		var speaker, content string
		if err := rows.Scan(&speaker, &content); err != nil {
			return "", err
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if speaker != "" {
			b.WriteString(speaker)
			b.WriteString(": ")
		}
		b.WriteString(content)
	}
	return b.String(), rows.Err()
}

func (s *Store) FinalizeTranscript(ctx context.Context, meetingID, finalText string) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE meetings SET final_transcript=$2, finalized_at=NOW() WHERE id=$1`, meetingID, finalText)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrMeetingNotFound
	}
	return nil
}

func (s *Store) GetFinalTranscript(ctx context.Context, meetingID string) (string, error) {
	var text sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT final_transcript FROM meetings WHERE id=$1`, meetingID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrMeetingNotFound
	}
	return text.String, err
}

// Chat operations
func (s *Store) AppendChatMessage(ctx context.Context, meetingID, role, content string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO chat_messages (meeting_id, role, content) VALUES ($1,$2,$3)`, meetingID, role, content)
	return err
}

// LoadChat returns up to limit most recent turns in chronological order.
func (s *Store) LoadChat(ctx context.Context, meetingID string, limit int) ([]models.Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT role, content FROM (
  SELECT role, content, created_at FROM chat_messages WHERE meeting_id=$1 ORDER BY created_at DESC LIMIT $2
) recent ORDER BY created_at ASC`, meetingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats used by the ops endpoint.
type Stats struct {
	Users    int       `json:"users"`
	Meetings int       `json:"meetings"`
	Messages int       `json:"messages"`
	At       time.Time `json:"at"`
}

func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	st := Stats{At: time.Now().UTC()}
	row := s.DB.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM meetings), (SELECT COUNT(*) FROM chat_messages)`)
	if err := row.Scan(&st.Users, &st.Meetings, &st.Messages); err != nil {
		return Stats{}, err
	}
	return st, nil
}
