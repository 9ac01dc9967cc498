package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PostgresStore хранит пользователей, товары, заказы и платежи
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore подключается к базе и создает схему, если ее нет
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("разбор настроек postgres: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("пул соединений postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id          BIGSERIAL   PRIMARY KEY,
			email       TEXT        NOT NULL UNIQUE,
			username    TEXT        NOT NULL,
			first_name  TEXT        NOT NULL DEFAULT '',
			last_name   TEXT        NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS products (
			id     BIGSERIAL PRIMARY KEY,
			name   TEXT      NOT NULL,
			price  BIGINT    NOT NULL
		);
		CREATE TABLE IF NOT EXISTS orders (
			id                BIGSERIAL   PRIMARY KEY,
			user_id           BIGINT      NOT NULL REFERENCES users(id),
			reference_id      TEXT        NOT NULL UNIQUE,
			status            TEXT        NOT NULL,
			shipping_address  TEXT        NOT NULL,
			billing_address   TEXT        NOT NULL DEFAULT '',
			shipping_cost     BIGINT      NOT NULL,
			tax_amount        BIGINT      NOT NULL,
			total_price       BIGINT      NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS order_items (
			order_id    BIGINT NOT NULL REFERENCES orders(id),
			product_id  BIGINT NOT NULL REFERENCES products(id),
			quantity    BIGINT NOT NULL,
			PRIMARY KEY (order_id, product_id)
		);
		CREATE TABLE IF NOT EXISTS payments (
			id              BIGSERIAL   PRIMARY KEY,
			order_id        BIGINT      NOT NULL UNIQUE REFERENCES orders(id),
			user_id         BIGINT      NOT NULL,
			amount          BIGINT      NOT NULL,
			provider        TEXT        NOT NULL,
			status          TEXT        NOT NULL,
			transaction_id  TEXT        NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
	`)
	if err != nil {
		return fmt.Errorf("создание схемы: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// GetOrCreateUser возвращает пользователя по email, создавая его при первом входе
func (s *PostgresStore) GetOrCreateUser(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "GetOrCreateUser", tracing.SubLayerDatabase)
	defer span.End()

	var u domain.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, username) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, username, first_name, last_name
	`, email, domain.UsernameFromEmail(email)).Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("upsert user %s: %w", email, err)
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))
	return &u, nil
}

// ProductPrices цены товаров в центах. Отсутствующих товаров нет в результате.
func (s *PostgresStore) ProductPrices(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "ProductPrices", tracing.SubLayerDatabase)
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT id, price FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	prices := make(map[int64]int64, len(productIDs))
	for rows.Next() {
		var id, price int64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		prices[id] = price
	}
	return prices, rows.Err()
}

const orderColumns = `id, user_id, reference_id, status, shipping_address, billing_address,
	shipping_cost, tax_amount, total_price, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.ReferenceID, &o.Status, &o.ShippingAddress, &o.BillingAddress,
		&o.ShippingCost, &o.TaxAmount, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) GetOrderByReferenceID(ctx context.Context, referenceID string) (*domain.Order, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "GetOrderByReferenceID", tracing.SubLayerDatabase,
		trace.WithAttributes(attribute.String("order.reference_id", referenceID)))
	defer span.End()

	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE reference_id = $1`, referenceID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query order %s: %w", referenceID, err)
	}
	return order, nil
}

// CreateOrder сохраняет заказ с позициями в одной транзакции.
// Повтор с тем же referenceId возвращает ранее созданный заказ.
func (s *PostgresStore) CreateOrder(ctx context.Context, o domain.NewOrder) (*domain.Order, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "CreateOrder", tracing.SubLayerDatabase,
		trace.WithAttributes(attribute.String("order.reference_id", o.ReferenceID)))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, reference_id, status, shipping_address, billing_address,
			shipping_cost, tax_amount, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (reference_id) DO NOTHING
		RETURNING `+orderColumns,
		o.UserID, o.ReferenceID, domain.OrderStatusPending, o.ShippingAddress, o.BillingAddress,
		o.ShippingCost, o.TaxAmount, o.TotalPrice))
	if errors.Is(err, domain.ErrNotFound) {
		return s.GetOrderByReferenceID(ctx, o.ReferenceID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert order %s: %w", o.ReferenceID, err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			order.ID, item.ProductID, item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert order items %s: %w", o.ReferenceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("commit order %s: %w", o.ReferenceID, err)
	}
	order.Items = o.Items
	return order, nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "UpdateOrderStatus", tracing.SubLayerDatabase,
		trace.WithAttributes(attribute.Int64("order.id", orderID), attribute.String("order.status", string(status))))
	defer span.End()

	order, err := scanOrder(s.pool.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+orderColumns, orderID, status))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update order %d: %w", orderID, err)
	}
	return order, nil
}

func (s *PostgresStore) GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "GetPaymentByOrderID", tracing.SubLayerDatabase)
	defer span.End()

	var p domain.Payment
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, user_id, amount, provider, status, transaction_id
		FROM payments WHERE order_id = $1
	`, orderID).Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Provider, &p.Status, &p.TransactionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query payment of order %d: %w", orderID, err)
	}
	return &p, nil
}

// CreatePayment сохраняет платеж. На заказ приходится не больше одного платежа.
func (s *PostgresStore) CreatePayment(ctx context.Context, p domain.Payment) (*domain.Payment, error) {
	ctx, span := tracing.StartInfrastructure(ctx, "CreatePayment", tracing.SubLayerDatabase)
	defer span.End()

	err := s.pool.QueryRow(ctx, `
		INSERT INTO payments (order_id, user_id, amount, provider, status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE SET transaction_id = EXCLUDED.transaction_id, updated_at = NOW()
		RETURNING id
	`, p.OrderID, p.UserID, p.Amount, p.Provider, p.Status, p.TransactionID).Scan(&p.ID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert payment of order %d: %w", p.OrderID, err)
	}
	return &p, nil
}

func (s *PostgresStore) UpdatePaymentStatusByOrderID(ctx context.Context, orderID int64, status domain.PaymentStatus) error {
	ctx, span := tracing.StartInfrastructure(ctx, "UpdatePaymentStatusByOrderID", tracing.SubLayerDatabase)
	defer span.End()

	tag, err := s.pool.Exec(ctx, `UPDATE payments SET status = $2, updated_at = NOW() WHERE order_id = $1`, orderID, status)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update payment of order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
