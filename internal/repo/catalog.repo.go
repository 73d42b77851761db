package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"marketplace/internal/domain"
)

type CatalogRepo interface {
	// FindClient returns nil when the storefront does not exist.
	FindClient(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	CreateClient(ctx context.Context, tx *sql.Tx, client *domain.Client) error

	// FindCategory returns nil when the category does not exist.
	FindCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context, clientID uuid.UUID) ([]domain.Category, error)
	CreateCategory(ctx context.Context, tx *sql.Tx, category *domain.Category) error

	// FindProducts returns the products among ids that exist, keyed by id.
	FindProducts(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
	ListProducts(ctx context.Context, clientID uuid.UUID) ([]domain.Product, error)
	CreateProduct(ctx context.Context, tx *sql.Tx, product *domain.Product) error
}

type catalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) CatalogRepo {
	return &catalogRepo{db: db}
}

const clientColumns = `id, name, logo_url, theme_color_primary, theme_color_secondary, time_to_delivery, address, phone, email, created_at, updated_at`

func scanClient(row rowScanner) (*domain.Client, error) {
	var (
		c                             domain.Client
		logo, primary, secondary, ttd sql.NullString
		address, phone, email         sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.Name,
		&logo,
		&primary,
		&secondary,
		&ttd,
		&address,
		&phone,
		&email,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.LogoURL = logo.String
	c.ThemeColorPrimary = primary.String
	c.ThemeColorSecondary = secondary.String
	c.TimeToDelivery = ttd.String
	c.Address = address.String
	c.Phone = phone.String
	c.Email = email.String
	return &c, nil
}

func (r *catalogRepo) FindClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM client WHERE id = $1`, id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find client %s: %w", id, err)
	}
	return c, nil
}

func (r *catalogRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM client ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (r *catalogRepo) CreateClient(ctx context.Context, tx *sql.Tx, c *domain.Client) error {
	query := `
		INSERT INTO client (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := pick(r.db, tx).ExecContext(ctx, query,
		c.ID, c.Name,
		nullString(c.LogoURL), nullString(c.ThemeColorPrimary), nullString(c.ThemeColorSecondary),
		nullString(c.TimeToDelivery), nullString(c.Address), nullString(c.Phone), nullString(c.Email),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", translate(err))
	}
	return nil
}

func (r *catalogRepo) FindCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, client_id FROM client_category WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.ClientID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category %s: %w", id, err)
	}
	return &c, nil
}

func (r *catalogRepo) ListCategories(ctx context.Context, clientID uuid.UUID) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, client_id FROM client_category WHERE client_id = $1 ORDER BY name`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ClientID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *catalogRepo) CreateCategory(ctx context.Context, tx *sql.Tx, c *domain.Category) error {
	_, err := pick(r.db, tx).ExecContext(ctx,
		`INSERT INTO client_category (id, name, client_id) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.ClientID,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", translate(err))
	}
	return nil
}

const productColumns = `id, description, unit_price, image_url, client_id, category_id`

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p        domain.Product
		image    sql.NullString
		category uuid.NullUUID
	)
	if err := row.Scan(&p.ID, &p.Description, &p.UnitPrice, &image, &p.ClientID, &category); err != nil {
		return nil, err
	}
	p.ImageURL = image.String
	if category.Valid {
		id := category.UUID
		p.CategoryID = &id
	}
	return &p, nil
}

func (r *catalogRepo) FindProducts(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	found := make(map[uuid.UUID]domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := pick(r.db, tx).QueryContext(ctx,
		`SELECT `+productColumns+` FROM product WHERE id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		found[p.ID] = *p
	}
	return found, rows.Err()
}

func (r *catalogRepo) ListProducts(ctx context.Context, clientID uuid.UUID) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM product WHERE client_id = $1 ORDER BY description`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *catalogRepo) CreateProduct(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	var category uuid.NullUUID
	if p.CategoryID != nil {
		category = uuid.NullUUID{UUID: *p.CategoryID, Valid: true}
	}
	_, err := pick(r.db, tx).ExecContext(ctx,
		`INSERT INTO product (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Description, p.UnitPrice, nullString(p.ImageURL), p.ClientID, category,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", translate(err))
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
