package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-delivery/internal/apperr"
	"service-delivery/internal/domain"
)

// DeliveryRepo stores Delivery aggregates in PostgreSQL. The last known GPS
// location is not stored.
type DeliveryRepo struct {
	db *pgxpool.Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// withTx opens a transaction and executes fn within it.
func (r *DeliveryRepo) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// отменяем в случае паники
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Create inserts a new delivery with its collection records and sets Version to 1.
// A second delivery for the same order fails with apperr.ErrConflict.
func (r *DeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		dlat, dlng := splitLocation(d.Destination)
		_, err := tx.Exec(ctx, `
			INSERT INTO deliveries (
				id, order_id, status, validation_code, code_epoch, code_consumed_at,
				destination_lat, destination_lng, gps_active, tracking_epoch,
				tracking_started_at, tracking_ends_at, created_at, collecting_at,
				picked_up_at, delivered_at, version
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)
		`,
			d.ID, d.OrderID, string(d.Status), d.ValidationCode, d.CodeEpoch, d.CodeConsumedAt,
			dlat, dlng, d.GPSActive, d.TrackingEpoch,
			d.TrackingStartedAt, d.TrackingEndsAt, d.CreatedAt, d.CollectingAt,
			d.PickedUpAt, d.DeliveredAt,
		)
		if err != nil {
			if IsDuplicate(err) {
				return fmt.Errorf("%w: delivery for order %d already exists", apperr.ErrConflict, d.OrderID)
			}
			return fmt.Errorf("insert delivery: %w", err)
		}

		batch := &pgx.Batch{}
		for i, c := range d.Collections {
			batch.Queue(`
				INSERT INTO delivery_collections (delivery_id, position, product_id, shop_id, status, collected_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, d.ID, i, c.ProductID, c.ShopID, string(c.Status), c.CollectedAt)
		}
		return execBatch(ctx, tx, batch, "insert collections")
	})
	if err != nil {
		return err
	}
	d.Version = 1
	return nil
}

// Get loads a delivery by id.
func (r *DeliveryRepo) Get(ctx context.Context, id string) (*domain.Delivery, error) {
	return r.load(ctx, `WHERE id = $1`, id)
}

// GetByOrderID loads the delivery of an order.
func (r *DeliveryRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.Delivery, error) {
	return r.load(ctx, `WHERE order_id = $1`, orderID)
}

// Save writes the mutable state of d if its Version is still current and bumps
// Version. A stale version fails with apperr.ErrConflict.
func (r *DeliveryRepo) Save(ctx context.Context, d *domain.Delivery) error {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE deliveries SET
				status = $3,
				validation_code = $4,
				code_epoch = $5,
				code_consumed_at = $6,
				gps_active = $7,
				tracking_epoch = $8,
				tracking_started_at = $9,
				tracking_ends_at = $10,
				collecting_at = $11,
				picked_up_at = $12,
				delivered_at = $13,
				version = version + 1
			WHERE id = $1 AND version = $2
		`,
			d.ID, d.Version, string(d.Status), d.ValidationCode, d.CodeEpoch, d.CodeConsumedAt,
			d.GPSActive, d.TrackingEpoch, d.TrackingStartedAt, d.TrackingEndsAt,
			d.CollectingAt, d.PickedUpAt, d.DeliveredAt,
		)
		if err != nil {
			if IsConcurrentUpdate(err) {
				return fmt.Errorf("%w: delivery %s was updated concurrently", apperr.ErrConflict, d.ID)
			}
			return fmt.Errorf("update delivery %s: %w", d.ID, err)
		}
		if ct.RowsAffected() == 0 {
			return r.missingOrStale(ctx, tx, d)
		}

		batch := &pgx.Batch{}
		for i, c := range d.Collections {
			batch.Queue(`
				UPDATE delivery_collections
				SET status = $3, collected_at = $4
				WHERE delivery_id = $1 AND position = $2
			`, d.ID, i, string(c.Status), c.CollectedAt)
		}
		return execBatch(ctx, tx, batch, "update collections")
	})
	if err != nil {
		return err
	}
	d.Version++
	return nil
}

func (r *DeliveryRepo) missingOrStale(ctx context.Context, tx pgx.Tx, d *domain.Delivery) error {
	var version int64
	err := tx.QueryRow(ctx, `SELECT version FROM deliveries WHERE id = $1`, d.ID).Scan(&version)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("delivery %s: %w", d.ID, apperr.ErrNotFound)
		}
		return fmt.Errorf("check delivery version %s: %w", d.ID, err)
	}
	return fmt.Errorf("%w: delivery %s is at version %d, not %d", apperr.ErrConflict, d.ID, version, d.Version)
}

func (r *DeliveryRepo) load(ctx context.Context, where string, arg any) (*domain.Delivery, error) {
	var (
		d          domain.Delivery
		status     string
		dlat, dlng *float64
	)
	row := r.db.QueryRow(ctx, `
		SELECT id, order_id, status, validation_code, code_epoch, code_consumed_at,
			destination_lat, destination_lng, gps_active, tracking_epoch,
			tracking_started_at, tracking_ends_at, created_at, collecting_at,
			picked_up_at, delivered_at, version
		FROM deliveries `+where, arg)
	err := row.Scan(
		&d.ID, &d.OrderID, &status, &d.ValidationCode, &d.CodeEpoch, &d.CodeConsumedAt,
		&dlat, &dlng, &d.GPSActive, &d.TrackingEpoch,
		&d.TrackingStartedAt, &d.TrackingEndsAt, &d.CreatedAt, &d.CollectingAt,
		&d.PickedUpAt, &d.DeliveredAt, &d.Version,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	d.Status = domain.DeliveryStatus(status)
	if dlat != nil && dlng != nil {
		d.Destination = &domain.Location{Lat: *dlat, Lng: *dlng}
	}

	rows, err := r.db.Query(ctx, `
		SELECT product_id, shop_id, status, collected_at
		FROM delivery_collections
		WHERE delivery_id = $1
		ORDER BY position
	`, d.ID)
	if err != nil {
		return nil, fmt.Errorf("get collections of %s: %w", d.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c  domain.CollectionRecord
			st string
		)
		if err := rows.Scan(&c.ProductID, &c.ShopID, &st, &c.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan collection of %s: %w", d.ID, err)
		}
		c.Status = domain.CollectionStatus(st)
		d.Collections = append(d.Collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections of %s: %w", d.ID, err)
	}
	return &d, nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, what string) error {
	if batch.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%s #%d: %w", what, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func splitLocation(l *domain.Location) (*float64, *float64) {
	if l == nil {
		return nil, nil
	}
	lat, lng := l.Lat, l.Lng
	return &lat, &lng
}
