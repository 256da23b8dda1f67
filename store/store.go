// Package store persists scraped articles in a single-file SQLite database.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"bizharvest"
)

// Store is an append-only article store deduplicated on URL. It exposes no
// update or delete operations; a row, once written, is immutable.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at dbPath and ensures the
// articles table exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the articles table if it doesn't exist. The UNIQUE
// constraint on article_url is the dedup invariant's enforcement point; it
// holds even if a caller skips the Has pre-check. The id column is a plain
// INTEGER PRIMARY KEY rowid alias: with no delete surface, ids stay
// strictly increasing and unreused, and an ignored duplicate insert does
// not consume an id the way an AUTOINCREMENT sequence bump would.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS business_articles (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		publication_date TEXT,
		article_url TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertIfNew inserts the article unless a row with its URL already exists.
// Returns true when a row was written, false when the URL was a duplicate.
// Duplicates are expected, not errors.
func (s *Store) InsertIfNew(article bizharvest.Article) (bool, error) {
	query := `
		INSERT OR IGNORE INTO business_articles
			(title, author, publication_date, article_url, content)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		article.Title,
		article.Author,
		article.PublishedAt,
		article.URL,
		article.Content,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Has reports whether an article with the given URL is already stored. The
// pipeline uses it to skip fetching pages it has already ingested.
func (s *Store) Has(articleURL string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM business_articles WHERE article_url = ?", articleURL,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query article: %w", err)
	}
	return true, nil
}

// Count returns the number of stored articles.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM business_articles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// List returns up to limit stored articles in insertion order. A limit of
// zero or less returns everything.
func (s *Store) List(limit int) ([]bizharvest.Article, error) {
	query := `
		SELECT id, title, author, publication_date, article_url, content
		FROM business_articles
		ORDER BY id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []bizharvest.Article
	for rows.Next() {
		var article bizharvest.Article
		var pubDate sql.NullString

		err := rows.Scan(
			&article.ID, &article.Title, &article.Author,
			&pubDate, &article.URL, &article.Content,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		if pubDate.Valid {
			article.PublishedAt = &pubDate.String
		}

		articles = append(articles, article)
	}

	return articles, rows.Err()
}
