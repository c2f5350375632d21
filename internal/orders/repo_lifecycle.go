package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const confirmedSelect = `
	SELECT c.id, c.order_row_id, c.order_id, c.product_id, COALESCE(p.name, ''), COALESCE(p.category, ''),
	       c.serial_number, c.item_comment, c.confirmed_at, c.deployed
	FROM confirmed_items c
	LEFT JOIN products p ON p.id = c.product_id`

func scanConfirmed(row pgx.Row) (ConfirmedItem, error) {
	var (
		c       ConfirmedItem
		comment []byte
	)
	err := row.Scan(&c.ID, &c.OrderRowID, &c.OrderID, &c.ProductID, &c.ProductName, &c.Category,
		&c.SerialNumber, &comment, &c.ConfirmedAt, &c.Deployed)
	if err != nil {
		return ConfirmedItem{}, err
	}
	c.ItemComment = decodeComment(comment)
	return c, nil
}

func collectConfirmed(rows pgx.Rows) ([]ConfirmedItem, error) {
	defer rows.Close()
	out := []ConfirmedItem{}
	for rows.Next() {
		c, err := scanConfirmed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan confirmed item: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const deployedSelect = `
	SELECT d.id, d.confirmed_item_id, d.order_id, d.product_id, COALESCE(p.name, ''), COALESCE(p.category, ''),
	       d.serial_number, d.item_comment, d.deployed_by, d.deployment_location, d.deployed_at, d.confirmed_at
	FROM deployed_items d
	LEFT JOIN products p ON p.id = d.product_id`

func scanDeployed(row pgx.Row) (DeployedItem, error) {
	var (
		d       DeployedItem
		comment []byte
	)
	err := row.Scan(&d.ID, &d.ConfirmedItemID, &d.OrderID, &d.ProductID, &d.ProductName, &d.Category,
		&d.SerialNumber, &comment, &d.DeployedBy, &d.DeploymentLocation, &d.DeployedAt, &d.ConfirmedAt)
	if err != nil {
		return DeployedItem{}, err
	}
	d.ItemComment = decodeComment(comment)
	return d, nil
}

// ConfirmUnits: per unit, conditional decrement (quantity > 0) -> insert the
// confirmed row. Any failure rolls the whole batch back.
func (r *Repo) ConfirmUnits(ctx context.Context, rowID int64, units []Unit) ([]ConfirmedItem, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]int64, 0, len(units))
	for _, u := range units {
		ct, err := tx.Exec(ctx, `
			UPDATE orders
			SET quantity = quantity - 1, confirmed_quantity = confirmed_quantity + 1
			WHERE id=$1 AND quantity > 0`, rowID)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() != 1 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, rowID).Scan(&exists); err != nil {
				return nil, err
			}
			if !exists {
				return nil, fmt.Errorf("%w %d", ErrOrderNotFound, rowID)
			}
			return nil, fmt.Errorf("%w: row %d", ErrAlreadyFullyConfirmed, rowID)
		}

		var serial *string
		if u.SerialNumber != "" {
			s := u.SerialNumber
			serial = &s
		}
		var id int64
		err = tx.QueryRow(ctx, `
			INSERT INTO confirmed_items(order_row_id, order_id, product_id, serial_number, item_comment)
			SELECT id, order_id, product_id, $2, $3 FROM orders WHERE id=$1
			RETURNING id`, rowID, serial, u.ItemComment.encode()).Scan(&id)
		if err != nil {
			if pgCode(err) == pgUniqueViolation {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateSerial, u.SerialNumber)
			}
			return nil, fmt.Errorf("insert confirmed item: %w", err)
		}
		ids = append(ids, id)
	}

	rows, err := tx.Query(ctx, confirmedSelect+` WHERE c.id = ANY($1) ORDER BY c.id`, ids)
	if err != nil {
		return nil, err
	}
	out, err := collectConfirmed(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListConfirmed(ctx context.Context, includeDeployed bool) ([]ConfirmedItem, error) {
	q := confirmedSelect
	if !includeDeployed {
		q += ` WHERE NOT c.deployed`
	}
	rows, err := r.DB.Query(ctx, q+` ORDER BY c.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query confirmed items: %w", err)
	}
	return collectConfirmed(rows)
}

func (r *Repo) SearchConfirmed(ctx context.Context, serial string) ([]ConfirmedItem, error) {
	rows, err := r.DB.Query(ctx, confirmedSelect+`
		WHERE c.serial_number ILIKE $1
		ORDER BY c.id`, likePattern(serial))
	if err != nil {
		return nil, fmt.Errorf("search confirmed items: %w", err)
	}
	return collectConfirmed(rows)
}

// Deploy marks the confirmed row (conditional on it not being deployed yet)
// and records the deployment in the same transaction.
func (r *Repo) Deploy(ctx context.Context, in DeployInput) (DeployedItem, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DeployedItem{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `UPDATE confirmed_items SET deployed = true WHERE id=$1 AND NOT deployed`, in.ConfirmedItemID)
	if err != nil {
		return DeployedItem{}, err
	}
	if ct.RowsAffected() != 1 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM confirmed_items WHERE id=$1)`, in.ConfirmedItemID).Scan(&exists); err != nil {
			return DeployedItem{}, err
		}
		if !exists {
			return DeployedItem{}, fmt.Errorf("%w %d", ErrConfirmedItemNotFound, in.ConfirmedItemID)
		}
		return DeployedItem{}, fmt.Errorf("%w: confirmed item %d", ErrAlreadyDeployed, in.ConfirmedItemID)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO deployed_items(confirmed_item_id, order_id, product_id, serial_number, item_comment,
		                           deployed_by, deployment_location, confirmed_at)
		SELECT id, order_id, product_id, serial_number, item_comment, $2, $3, confirmed_at
		FROM confirmed_items WHERE id=$1
		RETURNING id`, in.ConfirmedItemID, in.DeployedBy, in.DeploymentLocation).Scan(&id)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return DeployedItem{}, fmt.Errorf("%w: confirmed item %d", ErrAlreadyDeployed, in.ConfirmedItemID)
		}
		return DeployedItem{}, fmt.Errorf("insert deployed item: %w", err)
	}

	d, err := scanDeployed(tx.QueryRow(ctx, deployedSelect+` WHERE d.id=$1`, id))
	if err != nil {
		return DeployedItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return DeployedItem{}, err
	}
	return d, nil
}

// Undeploy removes the deployment and returns the unit to stock. The
// confirmed row was never deleted, so confirmed_at survives the round trip.
func (r *Repo) Undeploy(ctx context.Context, deployedItemID int64) (ConfirmedItem, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ConfirmedItem{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var confirmedID int64
	err = tx.QueryRow(ctx, `DELETE FROM deployed_items WHERE id=$1 RETURNING confirmed_item_id`, deployedItemID).Scan(&confirmedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConfirmedItem{}, fmt.Errorf("%w %d", ErrDeployedItemNotFound, deployedItemID)
	}
	if err != nil {
		return ConfirmedItem{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE confirmed_items SET deployed = false WHERE id=$1`, confirmedID); err != nil {
		return ConfirmedItem{}, err
	}
	c, err := scanConfirmed(tx.QueryRow(ctx, confirmedSelect+` WHERE c.id=$1`, confirmedID))
	if err != nil {
		return ConfirmedItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ConfirmedItem{}, err
	}
	return c, nil
}

func (r *Repo) ListDeployed(ctx context.Context) ([]DeployedItem, error) {
	rows, err := r.DB.Query(ctx, deployedSelect+` ORDER BY d.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query deployed items: %w", err)
	}
	defer rows.Close()

	out := []DeployedItem{}
	for rows.Next() {
		d, err := scanDeployed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployed item: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
