// Package sqldb is the SQL implementation of the record store, built on sqlx
// with a portable schema. The default driver is the pure-Go sqlite build;
// the driver and DSN remain configurable.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/saucelist/saucelist/internal/codec"
	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/storage"
)

// slugRetries bounds the retry loop closing the slug race: a concurrent
// insert of the same name surfaces as a unique-index violation and the
// count-then-insert is repeated with a fresh count.
const slugRetries = 3

// Store is the sqlx-backed RecordStore.
type Store struct {
	db *sqlx.DB
}

var _ storage.RecordStore = (*Store)(nil)

// Config holds database connection configuration.
type Config struct {
	Driver string // driver name: sqlite, postgres, mysql
	DSN    string // data source name / connection string
}

// New opens the database, applies driver init statements and creates the
// schema.
func New(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		for _, stmt := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := db.Exec(stmt); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to execute pragma: %w", err)
			}
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite opens a sqlite store at the given path.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// DB returns the underlying sqlx.DB for advanced operations.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
user_id INTEGER PRIMARY KEY,
display_name TEXT NOT NULL,
created INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS sauces (
sauce_id INTEGER PRIMARY KEY AUTOINCREMENT,
user_id INTEGER NOT NULL,
name TEXT NOT NULL,
maker TEXT NOT NULL,
slug TEXT NOT NULL,
description TEXT NOT NULL,
created INTEGER,
photo TEXT,
country TEXT,
state TEXT,
city TEXT,
shu TEXT,
ingredients TEXT,
is_active INTEGER NOT NULL DEFAULT 1,
is_private INTEGER NOT NULL DEFAULT 0,
FOREIGN KEY (user_id) REFERENCES users(user_id)
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sauces_slug ON sauces(slug)`,
		`CREATE TABLE IF NOT EXISTS reviews (
sauce_id INTEGER NOT NULL,
user_id INTEGER NOT NULL,
created INTEGER,
label_rating INTEGER NOT NULL CHECK (label_rating > -1 AND label_rating < 6),
label_txt TEXT,
aroma_rating INTEGER NOT NULL CHECK (aroma_rating > -1 AND aroma_rating < 6),
aroma_txt TEXT,
taste_rating INTEGER NOT NULL CHECK (taste_rating > -1 AND taste_rating < 6),
taste_txt TEXT,
heat_rating INTEGER NOT NULL CHECK (heat_rating > -1 AND heat_rating < 6),
heat_txt TEXT,
overall_rating INTEGER NOT NULL CHECK (overall_rating > -1 AND overall_rating < 6),
overall_txt TEXT NOT NULL,
note TEXT,
is_active INTEGER NOT NULL DEFAULT 1,
hash_id TEXT,
PRIMARY KEY (sauce_id, user_id),
FOREIGN KEY (sauce_id) REFERENCES sauces(sauce_id),
FOREIGN KEY (user_id) REFERENCES users(user_id)
)`,
		`CREATE TABLE IF NOT EXISTS types (
type_id INTEGER PRIMARY KEY AUTOINCREMENT,
value TEXT NOT NULL UNIQUE
)`,
		`CREATE TABLE IF NOT EXISTS sauces_types (
sauce_id INTEGER NOT NULL,
type_id INTEGER NOT NULL,
PRIMARY KEY (sauce_id, type_id),
FOREIGN KEY (sauce_id) REFERENCES sauces(sauce_id),
FOREIGN KEY (type_id) REFERENCES types(type_id)
)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return s.seedTypes()
}

// defaultTypes is the seeded allow-list of sauce types.
var defaultTypes = []string{
	"Hot Sauce",
	"BBQ Sauce",
	"Wing Sauce",
	"Marinade",
	"Salsa",
	"Curry Sauce",
}

func (s *Store) seedTypes() error {
	for _, value := range defaultTypes {
		q := s.db.Rebind("INSERT INTO types (value) VALUES (?) ON CONFLICT (value) DO NOTHING")
		if _, err := s.db.Exec(q, value); err != nil {
			return err
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique/primary-key constraint
// failure. modernc sqlite surfaces these as textual constraint errors;
// other drivers use comparable wording.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "duplicate key")
}

// InsertSauce generates the slug and inserts the sauce inside one
// transaction. The unique slug index plus a bounded retry closes the
// count-then-insert race the slug scheme would otherwise have.
func (s *Store) InsertSauce(ctx context.Context, rec *storage.SauceRecord) (string, error) {
	name, err := codec.NormalizeName(rec.Name)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < slugRetries; attempt++ {
		slug, err := s.insertSauceOnce(ctx, rec, name)
		if err == nil {
			return slug, nil
		}
		if !isUniqueViolation(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("could not assign a unique slug after %d attempts: %w", slugRetries, lastErr)
}

func (s *Store) insertSauceOnce(ctx context.Context, rec *storage.SauceRecord, name string) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var count int
	q := tx.Rebind("SELECT COUNT(*) FROM sauces WHERE name = ?")
	if err := tx.GetContext(ctx, &count, q, name); err != nil {
		return "", err
	}

	slug, err := codec.SlugForCount(name, count)
	if err != nil {
		return "", err
	}

	q = tx.Rebind(`INSERT INTO sauces
(user_id, name, maker, slug, description, created, photo, country, state, city, shu, ingredients, is_private)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	res, err := tx.ExecContext(ctx, q,
		rec.UserID, name, rec.Maker, slug, rec.Description, time.Now().Unix(),
		rec.Photo, rec.Country, rec.State, rec.City, rec.SHU, rec.Ingredients,
		rec.IsPrivate,
	)
	if err != nil {
		return "", err
	}

	if len(rec.Types) > 0 {
		sauceID, err := res.LastInsertId()
		if err != nil {
			return "", err
		}
		typeIDs, err := findTypeIDs(ctx, tx, rec.Types)
		if err != nil {
			return "", err
		}
		link := tx.Rebind("INSERT INTO sauces_types (sauce_id, type_id) VALUES (?, ?)")
		for _, typeID := range typeIDs {
			if _, err := tx.ExecContext(ctx, link, sauceID, typeID); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return slug, nil
}

type queryerContext interface {
	sqlx.QueryerContext
	Rebind(string) string
}

func findTypeIDs(ctx context.Context, q queryerContext, values []string) ([]int64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT type_id FROM types WHERE value IN (?)", values)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryxContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type sauceRow struct {
	SauceID     int64          `db:"sauce_id"`
	Slug        string         `db:"slug"`
	Name        string         `db:"name"`
	Maker       string         `db:"maker"`
	Description string         `db:"description"`
	Ingredients sql.NullString `db:"ingredients"`
	SHU         sql.NullString `db:"shu"`
	Country     sql.NullString `db:"country"`
	State       sql.NullString `db:"state"`
	City        sql.NullString `db:"city"`
	Photo       sql.NullString `db:"photo"`
	Created     sql.NullInt64  `db:"created"`
}

func (r sauceRow) toDomain() domain.Sauce {
	return domain.Sauce{
		ID:          r.SauceID,
		Slug:        r.Slug,
		Name:        r.Name,
		Maker:       r.Maker,
		Description: r.Description,
		Ingredients: r.Ingredients.String,
		SHU:         r.SHU.String,
		Country:     r.Country.String,
		State:       r.State.String,
		City:        r.City.String,
		Photo:       r.Photo.String,
		Created:     r.Created.Int64,
	}
}

const sauceColumns = "sauce_id, slug, name, maker, description, ingredients, shu, country, state, city, photo, created"

// FindSauceBySlug returns the public record for an active sauce, or nil when
// the slug is unknown.
func (s *Store) FindSauceBySlug(ctx context.Context, slug string) (*domain.Sauce, error) {
	var row sauceRow
	q := s.db.Rebind("SELECT " + sauceColumns + " FROM sauces WHERE slug = ? AND is_active = 1")
	if err := s.db.GetContext(ctx, &row, q, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sauce := row.toDomain()
	return &sauce, nil
}

// FindSauceIDBySlug resolves a slug to its internal id, active sauces only.
func (s *Store) FindSauceIDBySlug(ctx context.Context, slug string) (int64, error) {
	var id int64
	q := s.db.Rebind("SELECT sauce_id FROM sauces WHERE slug = ? AND is_active = 1")
	if err := s.db.GetContext(ctx, &id, q, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrDependency("Could not find the appropriate information for this sauce. Please try again").
				WithCode(domain.ErrorCodeSauceNotFound)
		}
		return 0, err
	}
	return id, nil
}

// CountSaucesByName counts sauces with the exact normalized name.
func (s *Store) CountSaucesByName(ctx context.Context, name string) (int, error) {
	var count int
	q := s.db.Rebind("SELECT COUNT(*) FROM sauces WHERE name = ?")
	if err := s.db.GetContext(ctx, &count, q, name); err != nil {
		return 0, err
	}
	return count, nil
}

// FindSaucesByQuery lists active public sauces per the canonical query
// configuration.
func (s *Store) FindSaucesByQuery(ctx context.Context, opts storage.QueryOptions) ([]domain.Sauce, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT s.sauce_id, s.slug, s.name, s.maker, s.description, s.ingredients, s.shu, s.country, s.state, s.city, s.photo, s.created FROM sauces s")

	if opts.Type != "" && opts.Type != "all" {
		sb.WriteString(` JOIN sauces_types st ON st.sauce_id = s.sauce_id
JOIN types t ON t.type_id = st.type_id AND LOWER(t.value) = ?`)
		args = append(args, strings.ToLower(opts.Type))
	}

	sb.WriteString(" WHERE s.is_active = 1 AND s.is_private = 0")

	switch opts.Order {
	case "name":
		sb.WriteString(" ORDER BY s.name ASC")
	case "times_reviewed":
		sb.WriteString(" ORDER BY (SELECT COUNT(*) FROM reviews r WHERE r.sauce_id = s.sauce_id AND r.is_active = 1) DESC")
	case "avg_rating":
		sb.WriteString(" ORDER BY (SELECT AVG(r.overall_rating) FROM reviews r WHERE r.sauce_id = s.sauce_id AND r.is_active = 1) DESC")
	default: // newest
		sb.WriteString(" ORDER BY s.created DESC")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 12
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, (page-1)*limit)

	var rows []sauceRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(sb.String()), args...); err != nil {
		return nil, err
	}

	sauces := make([]domain.Sauce, len(rows))
	for i, row := range rows {
		sauces[i] = row.toDomain()
	}
	return sauces, nil
}

// FindRelatedSauces returns up to four sauces sharing a type with the given
// slug's sauce, falling back to the newest sauces when none share one.
func (s *Store) FindRelatedSauces(ctx context.Context, slug string) ([]domain.SauceSummary, error) {
	q := s.db.Rebind(`SELECT DISTINCT s.name, s.slug FROM sauces s
JOIN sauces_types st ON st.sauce_id = s.sauce_id
WHERE st.type_id IN (
SELECT st2.type_id FROM sauces_types st2
JOIN sauces s2 ON s2.sauce_id = st2.sauce_id
WHERE s2.slug = ?
)
AND s.slug != ? AND s.is_active = 1 AND s.is_private = 0
LIMIT 4`)

	var related []domain.SauceSummary
	rows, err := s.db.QueryxContext(ctx, q, slug, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r domain.SauceSummary
		if err := rows.Scan(&r.Name, &r.Slug); err != nil {
			return nil, err
		}
		related = append(related, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(related) > 0 {
		return related, nil
	}

	fallback := s.db.Rebind(`SELECT name, slug FROM sauces
WHERE slug != ? AND is_active = 1 AND is_private = 0
ORDER BY created DESC LIMIT 4`)
	rows, err = s.db.QueryxContext(ctx, fallback, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r domain.SauceSummary
		if err := rows.Scan(&r.Name, &r.Slug); err != nil {
			return nil, err
		}
		related = append(related, r)
	}
	return related, rows.Err()
}

// FindSaucesWithNewestReviews returns the newest active reviews joined with
// their sauce.
func (s *Store) FindSaucesWithNewestReviews(ctx context.Context, limit int) ([]domain.NewestReview, error) {
	q := s.db.Rebind(`SELECT r.hash_id, r.overall_txt, s.name, s.slug
FROM reviews r
JOIN sauces s ON s.sauce_id = r.sauce_id
WHERE r.is_active = 1 AND s.is_active = 1 AND s.is_private = 0
ORDER BY r.created DESC
LIMIT ?`)

	rows, err := s.db.QueryxContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newest []domain.NewestReview
	for rows.Next() {
		var (
			n      domain.NewestReview
			hashID sql.NullString
		)
		if err := rows.Scan(&hashID, &n.OverallTxt, &n.SauceName, &n.SauceSlug); err != nil {
			return nil, err
		}
		n.HashID = hashID.String
		newest = append(newest, n)
	}
	return newest, rows.Err()
}

// CountSauces returns the number of active public sauces.
func (s *Store) CountSauces(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sauces WHERE is_active = 1 AND is_private = 0"); err != nil {
		return 0, err
	}
	return count, nil
}

// EnsureUser creates the user row if it does not exist yet.
func (s *Store) EnsureUser(ctx context.Context, userID int64, displayName string) error {
	if displayName == "" {
		displayName = "anonymous"
	}
	q := s.db.Rebind("INSERT INTO users (user_id, display_name, created) VALUES (?, ?, ?) ON CONFLICT (user_id) DO NOTHING")
	_, err := s.db.ExecContext(ctx, q, userID, displayName, time.Now().Unix())
	return err
}

// InsertReview inserts one review row. The composite primary key enforces at
// most one review per author per sauce; violations surface as conflicts.
func (s *Store) InsertReview(ctx context.Context, rec *storage.ReviewRecord) error {
	q := s.db.Rebind(`INSERT INTO reviews
(sauce_id, user_id, created, label_rating, label_txt, aroma_rating, aroma_txt,
taste_rating, taste_txt, heat_rating, heat_txt, overall_rating, overall_txt, note)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		rec.SauceID, rec.UserID, time.Now().Unix(),
		rec.LabelRating, rec.LabelTxt,
		rec.AromaRating, rec.AromaTxt,
		rec.TasteRating, rec.TasteTxt,
		rec.HeatRating, rec.HeatTxt,
		rec.OverallRating, rec.OverallTxt,
		rec.Note,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict("You have already reviewed this sauce.")
		}
		return err
	}
	return nil
}

// SetReviewHashID stores the compact id computed after insertion.
func (s *Store) SetReviewHashID(ctx context.Context, sauceID, userID int64, hashID string) error {
	q := s.db.Rebind("UPDATE reviews SET hash_id = ? WHERE sauce_id = ? AND user_id = ?")
	res, err := s.db.ExecContext(ctx, q, hashID, sauceID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDependency("Error saving review. Please try again.")
	}
	return nil
}

type reviewRow struct {
	HashID        sql.NullString `db:"hash_id"`
	Created       sql.NullInt64  `db:"created"`
	LabelRating   int            `db:"label_rating"`
	LabelTxt      sql.NullString `db:"label_txt"`
	AromaRating   int            `db:"aroma_rating"`
	AromaTxt      sql.NullString `db:"aroma_txt"`
	TasteRating   int            `db:"taste_rating"`
	TasteTxt      sql.NullString `db:"taste_txt"`
	HeatRating    int            `db:"heat_rating"`
	HeatTxt       sql.NullString `db:"heat_txt"`
	OverallRating int            `db:"overall_rating"`
	OverallTxt    string         `db:"overall_txt"`
	Note          sql.NullString `db:"note"`
	AuthorName    string         `db:"display_name"`
	AuthorCreated sql.NullInt64  `db:"author_created"`
}

// FindReviewsBySauceID returns the sauce's active reviews joined with each
// author's display name, reshaped from flat rows into the nested client
// shape.
func (s *Store) FindReviewsBySauceID(ctx context.Context, sauceID int64) ([]domain.Review, error) {
	q := s.db.Rebind(`SELECT r.hash_id, r.created,
r.label_rating, r.label_txt, r.aroma_rating, r.aroma_txt,
r.taste_rating, r.taste_txt, r.heat_rating, r.heat_txt,
r.overall_rating, r.overall_txt, r.note,
u.display_name, u.created AS author_created
FROM reviews r
JOIN users u ON u.user_id = r.user_id
WHERE r.is_active = 1 AND r.sauce_id = ?`)

	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows, q, sauceID); err != nil {
		return nil, err
	}

	reviews := make([]domain.Review, len(rows))
	for i, row := range rows {
		reviews[i] = domain.Review{
			HashID:  row.HashID.String,
			Created: row.Created.Int64,
			Author: domain.Author{
				DisplayName: row.AuthorName,
				Created:     row.AuthorCreated.Int64,
			},
			Label:   domain.RatedAspect{Rating: row.LabelRating, Txt: row.LabelTxt.String},
			Aroma:   domain.RatedAspect{Rating: row.AromaRating, Txt: row.AromaTxt.String},
			Taste:   domain.RatedAspect{Rating: row.TasteRating, Txt: row.TasteTxt.String},
			Heat:    domain.RatedAspect{Rating: row.HeatRating, Txt: row.HeatTxt.String},
			Overall: domain.RatedAspect{Rating: row.OverallRating, Txt: row.OverallTxt},
			Note:    domain.Note{Txt: row.Note.String},
		}
	}
	return reviews, nil
}

// FindReviewHashIDsBySauceID returns only the compact ids of a sauce's
// active reviews.
func (s *Store) FindReviewHashIDsBySauceID(ctx context.Context, sauceID int64) ([]string, error) {
	q := s.db.Rebind("SELECT hash_id FROM reviews WHERE sauce_id = ? AND is_active = 1 AND hash_id IS NOT NULL")
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, q, sauceID); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListTypes returns the known sauce types.
func (s *Store) ListTypes(ctx context.Context) ([]string, error) {
	var values []string
	if err := s.db.SelectContext(ctx, &values, "SELECT value FROM types ORDER BY type_id"); err != nil {
		return nil, err
	}
	return values, nil
}

// FindTypeIDsByValues resolves type values to their ids.
func (s *Store) FindTypeIDsByValues(ctx context.Context, values []string) ([]int64, error) {
	return findTypeIDs(ctx, s.db, values)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
