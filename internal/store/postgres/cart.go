package postgres

import (
	"context"
	"database/sql"
	"errors"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

func (s *Store) AddCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cart (product_id, product_name, price, quantity, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, item.ProductID, item.ProductName, item.Price, item.Quantity, item.Status).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) (*domain.CartItem, error) {
	var item domain.CartItem
	err := s.db.QueryRowContext(ctx, `
		UPDATE cart
		SET quantity = $2
		WHERE id = $1
		RETURNING id, product_id, product_name, price, quantity, status, created_at
	`, id, quantity).Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity, &item.Status, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) ListCartItems(ctx context.Context) ([]domain.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, price, quantity, status, created_at
		FROM cart
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0, 16)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity, &item.Status, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ClearCart(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
