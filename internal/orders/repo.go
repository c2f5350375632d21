package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// advisory lock key serializing order id assignment
const orderIDLockKey = 7_301_001

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ---- products ----

const productColumns = `id, name, category, price, image_ref, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.ImageRef, &p.CreatedAt)
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(name, category, price, image_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		in.Name, in.Category, in.Price, in.ImageRef))
}

func (r *Repo) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products
		SET name=$2, category=$3, price=$4, image_ref = COALESCE(NULLIF($5, ''), image_ref)
		WHERE id=$1
		RETURNING `+productColumns,
		id, in.Name, in.Category, in.Price, in.ImageRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return p, err
}

func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("%w: product %d", ErrProductInUse, id)
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return nil
}

// ---- orders ----

const orderSelect = `
	SELECT o.id, o.order_id, o.product_id, COALESCE(p.name, ''), COALESCE(p.category, ''),
	       o.quantity, o.confirmed_quantity, o.order_date::text, o.ordered_by,
	       o.comment, o.item_comment, o.serial_numbers, o.created_at
	FROM orders o
	LEFT JOIN products p ON p.id = o.product_id`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                 Order
		comment, itemCmnt []byte
	)
	err := row.Scan(&o.ID, &o.OrderID, &o.ProductID, &o.ProductName, &o.Category,
		&o.Quantity, &o.ConfirmedQuantity, &o.OrderDate, &o.OrderedBy,
		&comment, &itemCmnt, &o.SerialNumbers, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Comment = decodeComment(comment)
	o.ItemComment = decodeComment(itemCmnt)
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, orderSelect+` ORDER BY o.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	return collectOrders(rows)
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w %d", ErrOrderNotFound, id)
	}
	return o, err
}

func (r *Repo) FindOrderRow(ctx context.Context, orderID string, productID int64) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, orderSelect+`
		WHERE o.order_id=$1 AND o.product_id=$2
		ORDER BY (o.quantity > 0) DESC, o.id
		LIMIT 1`, orderID, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %s product %d", ErrOrderNotFound, orderID, productID)
	}
	return o, err
}

func lastOrderID(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}) (string, error) {
	var last string
	err := q.QueryRow(ctx, `SELECT order_id FROM orders ORDER BY id DESC LIMIT 1`).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return last, err
}

func (r *Repo) LastOrderID(ctx context.Context) (string, error) {
	return lastOrderID(ctx, r.DB)
}

// CreateOrder inserts a basket. Id assignment takes a transaction-scoped
// advisory lock so two baskets created at once never share an order id.
func (r *Repo) CreateOrder(ctx context.Context, in CreateOrderInput) ([]Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderID := in.OrderID
	if orderID == "" {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, orderIDLockKey); err != nil {
			return nil, fmt.Errorf("lock order ids: %w", err)
		}
		last, err := lastOrderID(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("read last order id: %w", err)
		}
		orderID = NextOrderID(last)
	}

	ids := make([]int64, 0, len(in.Lines))
	for _, l := range in.Lines {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO orders(order_id, product_id, quantity, order_date, ordered_by, comment, item_comment)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			orderID, l.ProductID, l.Quantity, in.OrderDate, in.OrderedBy,
			in.Comment.encode(), l.ItemComment.encode(),
		).Scan(&id)
		if err != nil {
			switch pgCode(err) {
			case pgForeignKeyViolation:
				return nil, validationf("unknown product_id %d", l.ProductID)
			case pgCheckViolation:
				return nil, validationf("invalid quantity %d", l.Quantity)
			}
			return nil, fmt.Errorf("insert order line: %w", err)
		}
		ids = append(ids, id)
	}

	rows, err := tx.Query(ctx, orderSelect+` WHERE o.id = ANY($1) ORDER BY o.id`, ids)
	if err != nil {
		return nil, err
	}
	out, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) CorrectOrder(ctx context.Context, id int64, c OrderCorrection) (Order, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET quantity   = COALESCE($2, quantity),
		    ordered_by = COALESCE($3, ordered_by),
		    order_date = COALESCE($4::date, order_date)
		WHERE id=$1`, id, c.Quantity, c.OrderedBy, c.OrderDate)
	if err != nil {
		if pgCode(err) == pgCheckViolation {
			return Order{}, validationf("quantity must be >= 0")
		}
		return Order{}, err
	}
	if ct.RowsAffected() == 0 {
		return Order{}, fmt.Errorf("%w %d", ErrOrderNotFound, id)
	}
	return r.GetOrder(ctx, id)
}

func (r *Repo) DeleteOrder(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1 AND confirmed_quantity = 0`, id)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("%w: row %d", ErrOrderHasConfirmations, id)
		}
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetOrder(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: row %d", ErrOrderHasConfirmations, id)
}

func (r *Repo) UpdateBasketComment(ctx context.Context, orderID string, c Comment) (int64, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET comment=$2 WHERE order_id=$1`, orderID, c.encode())
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, fmt.Errorf("%w: order %s", ErrOrderNotFound, orderID)
	}
	return ct.RowsAffected(), nil
}

func (r *Repo) UpdateItemComment(ctx context.Context, rowID int64, c Comment) (Order, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET item_comment=$2 WHERE id=$1`, rowID, c.encode())
	if err != nil {
		return Order{}, err
	}
	if ct.RowsAffected() == 0 {
		return Order{}, fmt.Errorf("%w %d", ErrOrderNotFound, rowID)
	}
	return r.GetOrder(ctx, rowID)
}

// Snapshot reads the four tables concurrently.
func (r *Repo) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { s.Products, err = r.ListProducts(ctx); return })
	g.Go(func() (err error) { s.Orders, err = r.ListOrders(ctx); return })
	g.Go(func() (err error) { s.Confirmed, err = r.ListConfirmed(ctx, true); return })
	g.Go(func() (err error) { s.Deployed, err = r.ListDeployed(ctx); return })
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// likePattern escapes LIKE metacharacters for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
