package artist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sydlexius/liner/internal/database"
)

// artistColumns is the ordered list of columns for SELECT queries.
const artistColumns = `id, name, spotify_id, musicbrainz_id, wikidata_id,
	name_localized, real_name, artist_type, artist_group, biography,
	created_at, updated_at`

// ErrNotFound is returned when no artist matches the requested id.
var ErrNotFound = errors.New("artist not found")

// Service provides artist persistence for the enrichment engine.
type Service struct {
	db *sql.DB
}

// NewService creates an artist service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new artist and sets its ID.
func (s *Service) Create(ctx context.Context, a *Artist) error {
	a.Normalize()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO artists (
			name, spotify_id, musicbrainz_id, wikidata_id,
			name_localized, real_name, artist_type, artist_group, biography,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.Name, nullString(a.SpotifyID), nullString(a.MusicBrainzID), nullString(a.WikidataID),
		nullString(a.LocalizedName), nullString(a.RealName), nullString(string(a.Type)),
		nullString(a.Group), nullString(a.Biography),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating artist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading artist id: %w", err)
	}
	a.ID = id
	return nil
}

// GetByID retrieves an artist by primary key.
func (s *Service) GetByID(ctx context.Context, id int64) (*Artist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by id: %w", err)
	}
	return a, nil
}

// SelectUnenrichedBatch returns up to limit artists still missing field,
// oldest identifier first.
func (s *Service) SelectUnenrichedBatch(ctx context.Context, field Field, limit int) ([]Artist, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT ` + artistColumns + ` FROM artists WHERE ` + field.pendingPredicate() + //nolint:gosec // G202: predicate comes from a closed switch
		` ORDER BY id ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting %s batch: %w", field, err)
	}
	defer rows.Close() //nolint:errcheck

	var artists []Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artist row: %w", err)
		}
		artists = append(artists, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artist rows: %w", err)
	}
	return artists, nil
}

// CountPending returns how many artists are still missing field.
func (s *Service) CountPending(ctx context.Context, field Field) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists WHERE `+field.pendingPredicate()).Scan(&n) //nolint:gosec // G202: closed switch
	if err != nil {
		return 0, fmt.Errorf("counting pending %s: %w", field, err)
	}
	return n, nil
}

// Save persists the columns owned by field in its own transaction and
// reloads a from the stored row. Batches for different fields may hold
// stale copies of the same row, so each writes only its own columns, and
// the identifiers every field can discover are filled but never replaced.
// A real name already stored is kept even when a carries a different one.
func (s *Service) Save(ctx context.Context, a *Artist, field Field) error {
	a.Normalize()
	now := time.Now().UTC()
	sets, args := field.assignments(a)
	query := `UPDATE artists SET ` + sets + `, updated_at = ? WHERE id = ?` //nolint:gosec // G202: assignments come from a closed switch
	args = append(args, now.Format(time.RFC3339), a.ID)

	var stored *Artist
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("updating artist %d: %w", a.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading affected rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", ErrNotFound, a.ID)
		}
		stored, err = scanArtist(tx.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, a.ID))
		if err != nil {
			return fmt.Errorf("reloading artist %d: %w", a.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*a = *stored
	return nil
}

// List returns a page of artists and the total matching count.
func (s *Service) List(ctx context.Context, params ListParams) ([]Artist, int, error) {
	params.Validate()

	var conditions []string
	var args []any
	if params.Search != "" {
		conditions = append(conditions, "(name LIKE ? OR name_localized LIKE ?)")
		args = append(args, "%"+params.Search+"%", "%"+params.Search+"%")
	}
	if params.Pending != "" {
		conditions = append(conditions, "("+params.Pending.pendingPredicate()+")")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artists"+where, args...).Scan(&total); err != nil { //nolint:gosec // G202: built from fixed fragments
		return nil, 0, fmt.Errorf("counting artists: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := `SELECT ` + artistColumns + ` FROM artists` + where + ` ORDER BY id ASC LIMIT ? OFFSET ?` //nolint:gosec // G202: built from fixed fragments
	rows, err := s.db.QueryContext(ctx, query, append(args, params.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var artists []Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning artist row: %w", err)
		}
		artists = append(artists, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating artist rows: %w", err)
	}
	return artists, total, nil
}

// scanArtist scans a database row into an Artist struct.
func scanArtist(row interface{ Scan(...any) error }) (*Artist, error) {
	var a Artist
	var spotifyID, mbid, qid, localized, realName, typ, group, bio sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&a.ID, &a.Name, &spotifyID, &mbid, &qid,
		&localized, &realName, &typ, &group, &bio,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.SpotifyID = spotifyID.String
	a.MusicBrainzID = mbid.String
	a.WikidataID = qid.String
	a.LocalizedName = localized.String
	a.RealName = realName.String
	a.Type = Type(typ.String)
	a.Group = group.String
	a.Biography = bio.String
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

// nullString stores empty strings as NULL so the pending predicates see them.
func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// parseTime parses a time string, handling both RFC3339 and SQLite datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
