package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/quickmart-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlocks.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetCart возвращает корзину пользователя.
func (r *PostgresRepository) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, lines, total_amount, total_items, created_at, updated_at
		 FROM carts
		 WHERE user_id = $1`,
		userID,
	)

	var (
		cart     model.Cart
		rawLines []byte
	)
	err := row.Scan(&cart.ID, &cart.UserID, &rawLines, &cart.TotalAmount, &cart.TotalItems, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if err := json.Unmarshal(rawLines, &cart.Lines); err != nil {
		return nil, fmt.Errorf("decode cart lines: %w", err)
	}

	return &cart, nil
}

// SaveCart сохраняет корзину пользователя целиком (вставка или обновление).
func (r *PostgresRepository) SaveCart(ctx context.Context, cart *model.Cart) error {
	rawLines, err := json.Marshal(cart.Lines)
	if err != nil {
		return fmt.Errorf("encode cart lines: %w", err)
	}

	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO carts (id, user_id, lines, total_amount, total_items, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (user_id) DO UPDATE
			 SET lines = EXCLUDED.lines,
			     total_amount = EXCLUDED.total_amount,
			     total_items = EXCLUDED.total_items,
			     updated_at = EXCLUDED.updated_at`,
			cart.ID, cart.UserID, rawLines, cart.TotalAmount, cart.TotalItems, cart.CreatedAt, cart.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		return nil
	})
}

// SaveOrder сохраняет новый заказ.
func (r *PostgresRepository) SaveOrder(ctx context.Context, order *model.Order) error {
	rawLines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}

	var partner *string
	if order.DeliveryPartner != "" {
		partner = &order.DeliveryPartner
	}

	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO orders (id, order_number, user_id, lines, total_amount, delivery_fee, final_amount,
			                     payment_id, payment_method, delivery_address, status, delivery_partner,
			                     estimated_minutes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			order.ID, order.OrderNumber, order.UserID, rawLines, order.TotalAmount, order.DeliveryFee,
			order.FinalAmount, order.PaymentID, order.PaymentMethod, order.DeliveryAddress,
			string(order.Status), partner, order.EstimatedMinutes, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, order_number, user_id, lines, total_amount, delivery_fee, final_amount,
		        payment_id, payment_method, delivery_address, status, delivery_partner,
		        estimated_minutes, created_at, updated_at
		 FROM orders
		 WHERE id = $1`,
		orderID,
	)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_number, user_id, lines, total_amount, delivery_fee, final_amount,
		        payment_id, payment_method, delivery_address, status, delivery_partner,
		        estimated_minutes, created_at, updated_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateOrderStatus перезаписывает статус заказа и возвращает обновлённый заказ.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetOrder(ctx, orderID)
}

// AssignDeliveryPartner назначает курьера и переводит заказ в статус assigned.
func (r *PostgresRepository) AssignDeliveryPartner(ctx context.Context, orderID, partnerName string) (*model.Order, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET delivery_partner = $2, status = $3, updated_at = now() WHERE id = $1`,
		orderID, partnerName, string(model.OrderStatusAssigned),
	)
	if err != nil {
		return nil, fmt.Errorf("assign delivery partner: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetOrder(ctx, orderID)
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		order    model.Order
		rawLines []byte
		status   string
		partner  *string
	)

	err := row.Scan(&order.ID, &order.OrderNumber, &order.UserID, &rawLines, &order.TotalAmount,
		&order.DeliveryFee, &order.FinalAmount, &order.PaymentID, &order.PaymentMethod,
		&order.DeliveryAddress, &status, &partner, &order.EstimatedMinutes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawLines, &order.Lines); err != nil {
		return nil, fmt.Errorf("decode order lines: %w", err)
	}

	order.Status = model.OrderStatus(status)
	if partner != nil {
		order.DeliveryPartner = *partner
	}

	return &order, nil
}
