package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// ErrDuplicateStaff is returned when a username is already taken.
var ErrDuplicateStaff = errors.New("staff username already exists")

// Staff is a member allowed to sign in to the API.
type Staff struct {
	ID             uuid.UUID
	Username       string
	FullName       string
	Role           string
	HashedPassword string
}

// CheckPassword compares password with the stored bcrypt hash.
func (s Staff) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.HashedPassword), []byte(password)) == nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// PostgresStaff reads staff from the staff table.
type PostgresStaff struct {
	db DBTX
}

// NewPostgresStaff creates a PostgresStaff.
func NewPostgresStaff(db DBTX) *PostgresStaff {
	return &PostgresStaff{db: db}
}

const staffColumns = `id, username, full_name, role, hashed_password`

// GetStaffByUsername returns the active member with the username.
func (p *PostgresStaff) GetStaffByUsername(ctx context.Context, username string) (Staff, error) {
	row := p.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE username = $1 AND is_active = true`, username)
	return scanStaff(row.Scan, "staff "+username)
}

// GetStaffByID returns the active member with the id.
func (p *PostgresStaff) GetStaffByID(ctx context.Context, id uuid.UUID) (Staff, error) {
	row := p.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1 AND is_active = true`, id)
	return scanStaff(row.Scan, "staff "+id.String())
}

// UpsertStaff inserts the member or updates it by username, returning its id.
func (p *PostgresStaff) UpsertStaff(ctx context.Context, s Staff) (uuid.UUID, error) {
	if !enum.ValidRole(s.Role) {
		return uuid.Nil, fmt.Errorf("role %q: %w", s.Role, service.ErrInvalidInput)
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	var id uuid.UUID
	err := p.db.QueryRow(ctx, `
		INSERT INTO staff (id, username, full_name, role, hashed_password)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    role = EXCLUDED.role,
		    hashed_password = EXCLUDED.hashed_password,
		    is_active = true
		RETURNING id
	`, s.ID, s.Username, s.FullName, s.Role, s.HashedPassword).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert staff %s: %w", s.Username, err)
	}
	return id, nil
}

// CreateStaff inserts a new member. A taken username yields ErrDuplicateStaff.
func (p *PostgresStaff) CreateStaff(ctx context.Context, s Staff) (Staff, error) {
	if err := validateStaff(s); err != nil {
		return Staff{}, err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO staff (id, username, full_name, role, hashed_password)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.Username, s.FullName, s.Role, s.HashedPassword)
	if err != nil {
		if isUniqueViolation(err) {
			return Staff{}, fmt.Errorf("staff %s: %w", s.Username, ErrDuplicateStaff)
		}
		return Staff{}, fmt.Errorf("create staff %s: %w", s.Username, err)
	}
	return s, nil
}

// ListStaff returns the active members ordered by username.
func (p *PostgresStaff) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := p.db.Query(ctx, `SELECT `+staffColumns+` FROM staff WHERE is_active = true ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Staff, error) {
		return scanStaff(row.Scan, "staff row")
	})
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return members, nil
}

// DeactivateStaff soft-deletes the member. Their tokens stop refreshing.
func (p *PostgresStaff) DeactivateStaff(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `UPDATE staff SET is_active = false WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return fmt.Errorf("deactivate staff %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff %s: %w", id, service.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func validateStaff(s Staff) error {
	if strings.TrimSpace(s.Username) == "" {
		return fmt.Errorf("staff username is empty: %w", service.ErrInvalidInput)
	}
	if !enum.ValidRole(s.Role) {
		return fmt.Errorf("staff %s: role %q: %w", s.Username, s.Role, service.ErrInvalidInput)
	}
	return nil
}

func scanStaff(scan func(dest ...any) error, what string) (Staff, error) {
	var s Staff
	if err := scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.HashedPassword); err != nil {
		if isNoRows(err) {
			return Staff{}, fmt.Errorf("%s: %w", what, service.ErrNotFound)
		}
		return Staff{}, fmt.Errorf("%s: %w", what, err)
	}
	return s, nil
}

// MemoryStaff is a fixed staff directory, used when no database is
// configured. Usernames are matched case-insensitively.
type MemoryStaff struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]Staff
	byName map[string]uuid.UUID
}

// NewMemoryStaff creates a directory holding members.
func NewMemoryStaff(members ...Staff) (*MemoryStaff, error) {
	m := &MemoryStaff{
		byID:   make(map[uuid.UUID]Staff),
		byName: make(map[string]uuid.UUID),
	}
	for _, s := range members {
		if err := m.Add(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add registers a member. A zero ID is replaced with a random one.
func (m *MemoryStaff) Add(s Staff) error {
	_, err := m.CreateStaff(context.Background(), s)
	return err
}

// CreateStaff registers a member and returns it with its id.
func (m *MemoryStaff) CreateStaff(_ context.Context, s Staff) (Staff, error) {
	if err := validateStaff(s); err != nil {
		return Staff{}, err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	key := strings.ToLower(s.Username)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byName[key]; dup {
		return Staff{}, fmt.Errorf("staff %s: %w: %w", s.Username, ErrDuplicateStaff, service.ErrInvalidInput)
	}
	m.byID[s.ID] = s
	m.byName[key] = s.ID
	return s, nil
}

// ListStaff returns the members ordered by username.
func (m *MemoryStaff) ListStaff(_ context.Context) ([]Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Staff, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out, nil
}

// DeactivateStaff removes the member.
func (m *MemoryStaff) DeactivateStaff(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("staff %s: %w", id, service.ErrNotFound)
	}
	delete(m.byID, id)
	delete(m.byName, strings.ToLower(s.Username))
	return nil
}

// GetStaffByUsername implements the staff lookup used by login.
func (m *MemoryStaff) GetStaffByUsername(_ context.Context, username string) (Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[strings.ToLower(username)]
	if !ok {
		return Staff{}, fmt.Errorf("staff %s: %w", username, service.ErrNotFound)
	}
	return m.byID[id], nil
}

// GetStaffByID implements the staff lookup used by token refresh.
func (m *MemoryStaff) GetStaffByID(_ context.Context, id uuid.UUID) (Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return Staff{}, fmt.Errorf("staff %s: %w", id, service.ErrNotFound)
	}
	return s, nil
}
