package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/auction"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/points"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATOMIC EXECUTORS
// ══════════════════════════════════════════════════════════════════════════════

// SaleAtomic runs purchase mutations inside one PostgreSQL transaction.
// It implements auction.Atomic.
type SaleAtomic struct {
	conn *Connection
}

// NewSaleAtomic creates an atomic executor for sale mutations.
func NewSaleAtomic(conn *Connection) *SaleAtomic {
	return &SaleAtomic{conn: conn}
}

// InTx opens a transaction, hands fn a tx-scoped store, and commits only
// when fn returns nil. Any error rolls back every mutation fn made.
func (a *SaleAtomic) InTx(ctx context.Context, fn func(ctx context.Context, store auction.TxStore) error) error {
	return a.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, &saleTxStore{tx: tx})
	})
}

// GrantAtomic runs grant mutations inside one PostgreSQL transaction.
// It implements points.Atomic.
type GrantAtomic struct {
	conn *Connection
}

// NewGrantAtomic creates an atomic executor for grant mutations.
func NewGrantAtomic(conn *Connection) *GrantAtomic {
	return &GrantAtomic{conn: conn}
}

// InTx opens a transaction, hands fn a tx-scoped store, and commits only
// when fn returns nil.
func (a *GrantAtomic) InTx(ctx context.Context, fn func(ctx context.Context, store points.TxStore) error) error {
	return a.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, &grantTxStore{tx: tx})
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED COUNTER GUARDS
// ══════════════════════════════════════════════════════════════════════════════

// adjustStock applies amount += delta in a single guarded statement. The
// WHERE clause refuses the update when the result would go negative, so the
// row lock taken by UPDATE serializes concurrent buyers of the last unit:
// one commits, the other matches zero rows and is rejected here.
func adjustStock(ctx context.Context, q Querier, productID string, delta int) error {
	tag, err := q.Exec(ctx, `
		UPDATE products
		SET amount = amount + $1
		WHERE id = $2 AND amount + $1 >= 0
	`, delta, productID)
	if err != nil {
		return mapTxError("AdjustStock", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows means either a missing product or a floor violation.
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID,
	).Scan(&exists); err != nil {
		return mapTxError("AdjustStock", err)
	}
	if !exists {
		return auction.ErrProductNotFound
	}
	return auction.ErrInsufficientStock
}

// adjustBalance applies point += delta under the same guard as adjustStock,
// protecting the balance floor against concurrent spenders.
func adjustBalance(ctx context.Context, q Querier, studentID string, delta int) error {
	tag, err := q.Exec(ctx, `
		UPDATE students
		SET point = point + $1
		WHERE id = $2 AND point + $1 >= 0
	`, delta, studentID)
	if err != nil {
		return mapTxError("AdjustBalance", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, studentID,
	).Scan(&exists); err != nil {
		return mapTxError("AdjustBalance", err)
	}
	if !exists {
		return student.ErrStudentNotFound
	}
	return student.ErrInsufficientPoints
}

// studentBalance reads the balance as already adjusted in this transaction.
func studentBalance(ctx context.Context, q Querier, studentID string) (int, error) {
	var balance int
	err := q.QueryRow(ctx,
		`SELECT point FROM students WHERE id = $1`, studentID,
	).Scan(&balance)
	if err != nil {
		if IsNoRows(err) {
			return 0, student.ErrStudentNotFound
		}
		return 0, mapTxError("StudentBalance", err)
	}
	return balance, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SALE TX STORE
// ══════════════════════════════════════════════════════════════════════════════

// saleTxStore implements auction.TxStore over a live transaction.
type saleTxStore struct {
	tx pgx.Tx
}

func (s *saleTxStore) ProductByID(ctx context.Context, id string) (*auction.Product, error) {
	var p auction.Product
	err := s.tx.QueryRow(ctx, `
		SELECT id, auction_id, name, start_point, amount, COALESCE(image_path, '')
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.AuctionID, &p.Name, &p.StartPoint, &p.Amount, &p.ImagePath)
	if err != nil {
		if IsNoRows(err) {
			return nil, auction.ErrProductNotFound
		}
		return nil, mapTxError("ProductByID", err)
	}
	return &p, nil
}

func (s *saleTxStore) SaleByID(ctx context.Context, id string) (*auction.SaleRecord, error) {
	var rec auction.SaleRecord
	err := s.tx.QueryRow(ctx, `
		SELECT id, product_id, student_id, price, date, created_at
		FROM sold_products
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.ProductID, &rec.StudentID, &rec.Price, &rec.Date, &rec.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, auction.ErrSaleNotFound
		}
		return nil, mapTxError("SaleByID", err)
	}
	return &rec, nil
}

func (s *saleTxStore) InsertSale(ctx context.Context, rec *auction.SaleRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.tx.Exec(ctx, `
		INSERT INTO sold_products (id, product_id, student_id, price, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.ProductID, rec.StudentID, rec.Price, rec.Date, rec.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return auction.ErrProductNotFound
		}
		return mapTxError("InsertSale", err)
	}
	return nil
}

// UpdateSale rewrites everything but the business date, which records when
// the purchase originally happened.
func (s *saleTxStore) UpdateSale(ctx context.Context, rec *auction.SaleRecord) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE sold_products
		SET product_id = $1, student_id = $2, price = $3
		WHERE id = $4
	`, rec.ProductID, rec.StudentID, rec.Price, rec.ID)
	if err != nil {
		return mapTxError("UpdateSale", err)
	}
	if tag.RowsAffected() == 0 {
		return auction.ErrSaleNotFound
	}
	return nil
}

func (s *saleTxStore) DeleteSale(ctx context.Context, id string) error {
	tag, err := s.tx.Exec(ctx, `DELETE FROM sold_products WHERE id = $1`, id)
	if err != nil {
		return mapTxError("DeleteSale", err)
	}
	if tag.RowsAffected() == 0 {
		return auction.ErrSaleNotFound
	}
	return nil
}

func (s *saleTxStore) AdjustStock(ctx context.Context, productID string, delta int) error {
	return adjustStock(ctx, s.tx, productID, delta)
}

func (s *saleTxStore) AdjustBalance(ctx context.Context, studentID string, delta int) error {
	return adjustBalance(ctx, s.tx, studentID, delta)
}

func (s *saleTxStore) StudentBalance(ctx context.Context, studentID string) (int, error) {
	return studentBalance(ctx, s.tx, studentID)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRANT TX STORE
// ══════════════════════════════════════════════════════════════════════════════

// grantTxStore implements points.TxStore over a live transaction.
type grantTxStore struct {
	tx pgx.Tx
}

func (s *grantTxStore) GrantByID(ctx context.Context, id string) (*points.GrantRecord, error) {
	var (
		rec         points.GrantRecord
		mentorID    *string
		pointTypeID *string
	)
	err := s.tx.QueryRow(ctx, `
		SELECT id, student_id, mentor_id, point_type_id, amount,
		       COALESCE(description, ''), date, created_at
		FROM give_points
		WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.StudentID, &mentorID, &pointTypeID,
		&rec.Amount, &rec.Description, &rec.Date, &rec.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, points.ErrGrantNotFound
		}
		return nil, mapTxError("GrantByID", err)
	}
	if mentorID != nil {
		rec.MentorID = *mentorID
	}
	if pointTypeID != nil {
		rec.PointTypeID = *pointTypeID
	}
	return &rec, nil
}

func (s *grantTxStore) InsertGrant(ctx context.Context, g *points.GrantRecord) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	_, err := s.tx.Exec(ctx, `
		INSERT INTO give_points (id, student_id, mentor_id, point_type_id, amount, description, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.StudentID, nullableID(g.MentorID), nullableID(g.PointTypeID),
		g.Amount, g.Description, g.Date, g.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return student.ErrStudentNotFound
		}
		return mapTxError("InsertGrant", err)
	}
	return nil
}

func (s *grantTxStore) UpdateGrant(ctx context.Context, g *points.GrantRecord) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE give_points
		SET student_id = $1, mentor_id = $2, point_type_id = $3,
		    amount = $4, description = $5, date = $6
		WHERE id = $7
	`, g.StudentID, nullableID(g.MentorID), nullableID(g.PointTypeID),
		g.Amount, g.Description, g.Date, g.ID)
	if err != nil {
		return mapTxError("UpdateGrant", err)
	}
	if tag.RowsAffected() == 0 {
		return points.ErrGrantNotFound
	}
	return nil
}

func (s *grantTxStore) DeleteGrant(ctx context.Context, id string) error {
	tag, err := s.tx.Exec(ctx, `DELETE FROM give_points WHERE id = $1`, id)
	if err != nil {
		return mapTxError("DeleteGrant", err)
	}
	if tag.RowsAffected() == 0 {
		return points.ErrGrantNotFound
	}
	return nil
}

func (s *grantTxStore) AdjustBalance(ctx context.Context, studentID string, delta int) error {
	return adjustBalance(ctx, s.tx, studentID, delta)
}

// ResetAllBalances zeroes every balance and reports how many students were
// touched. Grant and sale records stay as they are: this is the operator's
// season reset, not a ledger rewrite.
func (s *grantTxStore) ResetAllBalances(ctx context.Context) (int64, error) {
	tag, err := s.tx.Exec(ctx, `UPDATE students SET point = 0`)
	if err != nil {
		return 0, mapTxError("ResetAllBalances", err)
	}
	return tag.RowsAffected(), nil
}

func (s *grantTxStore) StudentBalance(ctx context.Context, studentID string) (int, error) {
	return studentBalance(ctx, s.tx, studentID)
}

// nullableID maps an empty domain ID to SQL NULL.
func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}
