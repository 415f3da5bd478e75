package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ecomops/storefront/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateEmail  = errors.New("email already registered")
)

type Store struct {
	Db *pgxpool.Pool
}

func New(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// CreateUser inserts a new user with a pre-hashed password.
func (s *Store) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		"INSERT INTO users (first_name, last_name, email, password_hash, user_type) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.UserType,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("user insert failed: %w", err)
	}
	return id, nil
}

// GetUserByEmail retrieves a user for authentication.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.Db.QueryRow(ctx,
		"SELECT id, first_name, last_name, email, password_hash, user_type FROM users WHERE email = $1",
		email).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.UserType)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all registered users.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT id, first_name, last_name, email, password_hash, user_type FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.UserType); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser overwrites the mutable fields of an existing user.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	tag, err := s.Db.Exec(ctx,
		"UPDATE users SET first_name = $1, last_name = $2, email = $3, password_hash = $4 WHERE id = $5",
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user by id.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.Db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateProduct inserts a catalog item and returns its id.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		"INSERT INTO products (name, description, image, price) VALUES ($1, $2, $3, $4) RETURNING id",
		p.Name, p.Description, p.Image, p.Price.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("product insert failed: %w", err)
	}
	return id, nil
}

// GetProduct retrieves a single catalog item by id.
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	var price string
	err := s.Db.QueryRow(ctx,
		"SELECT id, name, description, image, price::text FROM products WHERE id = $1",
		id).Scan(&p.ID, &p.Name, &p.Description, &p.Image, &price)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price: %w", err)
	}
	return &p, nil
}

// ListProducts returns the full catalog.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT id, name, description, image, price::text FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var price string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &price); err != nil {
			return nil, err
		}
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct overwrites a catalog item.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	tag, err := s.Db.Exec(ctx,
		"UPDATE products SET name = $1, description = $2, image = $3, price = $4 WHERE id = $5",
		p.Name, p.Description, p.Image, p.Price.String(), p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct removes a catalog item by id.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.Db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// MarkSessionProcessed records a webhook session id and reports whether it
// had already been processed. The insert is a single-row upsert, so
// concurrent deliveries of the same session race safely: exactly one
// caller sees alreadyProcessed == false.
func (s *Store) MarkSessionProcessed(ctx context.Context, sessionID string) (alreadyProcessed bool, err error) {
	tag, err := s.Db.Exec(ctx,
		"INSERT INTO processed_sessions (session_id) VALUES ($1) ON CONFLICT (session_id) DO NOTHING",
		sessionID)
	if err != nil {
		return false, fmt.Errorf("session reservation failed: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}
