// Package store is the program library: compiled programs and the users
// allowed to manage them, kept in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/objfile"
)

var (
	ErrProgramNotFound    = errors.New("program not found")
	ErrProgramExists      = errors.New("program name already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
)

// Store wraps the library database.
type Store struct {
	conn *sql.DB
}

// Program is a stored program.
type Program struct {
	ID        string
	Name      string
	Source    string
	Digest    string
	CreatedAt time.Time
	object    []byte
}

// Open opens (and if needed creates) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{conn: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	logger.StoreInfo("Opened program library %s", dbPath)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			object BLOB NOT NULL,
			digest TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SaveProgram compiles source and stores it under name. It returns the new
// program id. Source that does not compile is rejected.
func (s *Store) SaveProgram(ctx context.Context, name, source string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("program name required")
	}

	p, err := basic.CompileReader(strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("compile %s: %w", name, err)
	}
	object, err := objfile.Encode(p)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO programs (id, name, source, object, digest, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, source, object, objfile.Digest(p), time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrProgramExists, name)
		}
		return "", fmt.Errorf("failed to save program: %w", err)
	}

	logger.StoreInfo("Saved program %s (%s, %d lines)", name, id, p.Len())
	return id, nil
}

// GetProgram looks a program up by id or by name.
func (s *Store) GetProgram(ctx context.Context, idOrName string) (*Program, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, name, source, object, digest, created_at FROM programs WHERE id = ? OR name = ? LIMIT 1`,
		idOrName, idOrName)

	var prog Program
	var created int64
	if err := row.Scan(&prog.ID, &prog.Name, &prog.Source, &prog.object, &prog.Digest, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, idOrName)
		}
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	prog.CreatedAt = time.Unix(created, 0)
	logger.StoreDebug("Read program %s (%s) for %q", prog.Name, prog.ID, idOrName)
	return &prog, nil
}

// LoadProgram returns the compiled form of a stored program.
func (s *Store) LoadProgram(ctx context.Context, idOrName string) (*basic.Program, error) {
	prog, err := s.GetProgram(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	p, err := objfile.Decode(prog.object)
	if err != nil {
		logger.StoreError("Stored object for %s is unreadable: %v", prog.Name, err)
		return nil, err
	}
	return p, nil
}

// ListPrograms returns all programs ordered by name. Source is left empty.
func (s *Store) ListPrograms(ctx context.Context) ([]Program, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, digest, created_at FROM programs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var programs []Program
	for rows.Next() {
		var prog Program
		var created int64
		if err := rows.Scan(&prog.ID, &prog.Name, &prog.Digest, &created); err != nil {
			return nil, err
		}
		prog.CreatedAt = time.Unix(created, 0)
		programs = append(programs, prog)
	}
	logger.StoreDebug("Listed %d programs", len(programs))
	return programs, rows.Err()
}

// DeleteProgram removes a program by id or name.
func (s *Store) DeleteProgram(ctx context.Context, idOrName string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM programs WHERE id = ? OR name = ?`, idOrName, idOrName)
	if err != nil {
		return fmt.Errorf("failed to delete program: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, idOrName)
	}
	logger.StoreInfo("Deleted program %s", idOrName)
	return nil
}

// CreateUser adds a user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password required")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		username, string(hashedPassword), time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	logger.StoreInfo("Created user %s", username)
	return nil
}

// VerifyUser checks a password against the stored hash.
func (s *Store) VerifyUser(ctx context.Context, username, password string) error {
	var storedHash string
	err := s.conn.QueryRowContext(ctx, `SELECT password FROM users WHERE username = ?`, username).Scan(&storedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to read user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
