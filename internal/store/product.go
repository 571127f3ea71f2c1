package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/storefront/apiserver/internal/imageset"
	"github.com/storefront/apiserver/types"
)

// ProductRepository handles persistence for products. The image list is
// stored in the image_url column in imageset's encoded form.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// List returns every product, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]types.Product, error) {
	const query = `
		SELECT id, title, caption, price, image_url, created_at, updated_at
		FROM products
		ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]types.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id int) (types.Product, error) {
	const query = `
		SELECT id, title, caption, price, image_url, created_at, updated_at
		FROM products
		WHERE id = $1`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Images = imageset.Decode(product.Images)

	const query = `
		INSERT INTO products (title, caption, price, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		product.Title,
		product.Caption,
		product.Price,
		imageset.Encode(product.Images),
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID); err != nil {
		return types.Product{}, err
	}
	return product, nil
}

// Update overwrites every column of an existing product, images included.
func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	product.UpdatedAt = time.Now()
	product.Images = imageset.Decode(product.Images)

	const query = `
		UPDATE products
		SET title = $1,
			caption = $2,
			price = $3,
			image_url = $4,
			updated_at = $5
		WHERE id = $6
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Title,
		product.Caption,
		product.Price,
		imageset.Encode(product.Images),
		product.UpdatedAt,
		product.ID,
	).Scan(&product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

// UpdateImages replaces only the image list of a product.
func (r *ProductRepository) UpdateImages(ctx context.Context, id int, images []string) error {
	const query = `
		UPDATE products
		SET image_url = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, imageset.Encode(images), time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM products WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row rowScanner) (types.Product, error) {
	var product types.Product
	var images sql.NullString
	if err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Caption,
		&product.Price,
		&images,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return types.Product{}, err
	}
	product.Images = imageset.Decode(images)
	return product, nil
}
