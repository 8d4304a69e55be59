package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

// ReplaceCatalog 在一个事务中用新的货架和商品替换整个目录
func (r *Repository) ReplaceCatalog(catalog *domain.Catalog) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shelves`); err != nil {
		return err
	}

	for i, shelf := range catalog.Shelves() {
		query := `
			INSERT INTO shelves (id, position, name, capacity, type, secured, visibility)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		params := []any{shelf.ID, i, shelf.Name, shelf.Capacity, shelf.Type, shelf.Secured, shelf.Visibility}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	for i, product := range catalog.Products() {
		query := `
			INSERT INTO products (
				id,
				position,
				name,
				weight,
				category,
				high_demand,
				perishable,
				bulky,
				hazardous,
				refrigerated,
				promotional,
				expensive
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`

		params := []any{
			product.ID,
			i,
			product.Name,
			product.Weight,
			product.Category,
			product.HighDemand,
			product.Perishable,
			product.Bulky,
			product.Hazardous,
			product.Refrigerated,
			product.Promotional,
			product.Expensive,
		}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllShelves() ([]domain.Shelf, error) {
	query := `
		SELECT id, name, capacity, type, secured, visibility
		FROM shelves
		ORDER BY position
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shelves := []domain.Shelf{}
	for rows.Next() {
		var shelf domain.Shelf
		dst := []any{&shelf.ID, &shelf.Name, &shelf.Capacity, &shelf.Type, &shelf.Secured, &shelf.Visibility}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		shelves = append(shelves, shelf)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shelves, nil
}

func (r *Repository) GetAllProducts() ([]domain.Product, error) {
	query := `
		SELECT
			id,
			name,
			weight,
			category,
			high_demand,
			perishable,
			bulky,
			hazardous,
			refrigerated,
			promotional,
			expensive
		FROM products
		ORDER BY position
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		dst := []any{
			&product.ID,
			&product.Name,
			&product.Weight,
			&product.Category,
			&product.HighDemand,
			&product.Perishable,
			&product.Bulky,
			&product.Hazardous,
			&product.Refrigerated,
			&product.Promotional,
			&product.Expensive,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// GetCatalog 按加载顺序读出货架和商品并构建目录
func (r *Repository) GetCatalog() (*domain.Catalog, error) {
	shelves, err := r.GetAllShelves()
	if err != nil {
		return nil, err
	}

	products, err := r.GetAllProducts()
	if err != nil {
		return nil, err
	}

	return domain.NewCatalog(shelves, products)
}
