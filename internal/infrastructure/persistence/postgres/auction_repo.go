package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/auction"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUCTION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AuctionRepository implements auction.Repository: the read side of the
// inventory store. Stock mutation goes through SaleAtomic only.
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a PostgreSQL auction repository.
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

// GetAuction returns an auction by ID.
func (r *AuctionRepository) GetAuction(ctx context.Context, id string) (*auction.Auction, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, description, event_date, event_time
		FROM auctions
		WHERE id = $1
	`, id)

	a, err := scanAuction(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, auction.ErrAuctionNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListAuctions returns all auctions ordered by (date, time) ascending.
func (r *AuctionRepository) ListAuctions(ctx context.Context) ([]*auction.Auction, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, description, event_date, event_time
		FROM auctions
		ORDER BY event_date ASC, event_time ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// CurrentAuction returns the auction with the latest (date, time) pair, or
// nil when no auctions exist at all.
func (r *AuctionRepository) CurrentAuction(ctx context.Context) (*auction.Auction, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, description, event_date, event_time
		FROM auctions
		ORDER BY event_date DESC, event_time DESC
		LIMIT 1
	`)

	a, err := scanAuction(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil // no auctions yet, not an error
		}
		return nil, err
	}
	return a, nil
}

// GetProduct returns a product by ID.
func (r *AuctionRepository) GetProduct(ctx context.Context, id string) (*auction.Product, error) {
	var p auction.Product
	err := r.conn.QueryRow(ctx, `
		SELECT id, auction_id, name, start_point, amount, COALESCE(image_path, '')
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.AuctionID, &p.Name, &p.StartPoint, &p.Amount, &p.ImagePath)
	if err != nil {
		if IsNoRows(err) {
			return nil, auction.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProductsForAuction returns the products grouped under an auction.
func (r *AuctionRepository) ListProductsForAuction(ctx context.Context, auctionID string) ([]*auction.Product, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, auction_id, name, start_point, amount, COALESCE(image_path, '')
		FROM products
		WHERE auction_id = $1
		ORDER BY name ASC
	`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*auction.Product
	for rows.Next() {
		var p auction.Product
		if err := rows.Scan(&p.ID, &p.AuctionID, &p.Name, &p.StartPoint, &p.Amount, &p.ImagePath); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

// GetSale returns a sale record by ID.
func (r *AuctionRepository) GetSale(ctx context.Context, id string) (*auction.SaleRecord, error) {
	var rec auction.SaleRecord
	err := r.conn.QueryRow(ctx, `
		SELECT id, product_id, student_id, price, date, created_at
		FROM sold_products
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.ProductID, &rec.StudentID, &rec.Price, &rec.Date, &rec.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, auction.ErrSaleNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListSalesForProduct returns sales of one product, newest first.
func (r *AuctionRepository) ListSalesForProduct(ctx context.Context, productID string) ([]*auction.SaleRecord, error) {
	return r.listSales(ctx, "product_id", productID)
}

// ListSalesForStudent returns a student's purchases, newest first.
func (r *AuctionRepository) ListSalesForStudent(ctx context.Context, studentID string) ([]*auction.SaleRecord, error) {
	return r.listSales(ctx, "student_id", studentID)
}

func (r *AuctionRepository) listSales(ctx context.Context, column, value string) ([]*auction.SaleRecord, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, product_id, student_id, price, date, created_at
		FROM sold_products
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []*auction.SaleRecord
	for rows.Next() {
		var rec auction.SaleRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.StudentID, &rec.Price, &rec.Date, &rec.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, &rec)
	}
	return sales, rows.Err()
}

// scanAuction reads one auction row. The TIME column comes back as a
// time-of-day offset, which we anchor to a zero date so StartsAt can
// recombine it with the event date.
func scanAuction(row interface{ Scan(dest ...any) error }) (*auction.Auction, error) {
	var (
		a  auction.Auction
		tm pgtype.Time
	)
	if err := row.Scan(&a.ID, &a.Description, &a.Date, &tm); err != nil {
		return nil, err
	}
	a.Time = timeOfDay(tm)
	return &a, nil
}

func timeOfDay(t pgtype.Time) time.Time {
	base := time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !t.Valid {
		return base
	}
	return base.Add(time.Duration(t.Microseconds) * time.Microsecond)
}
