package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

// Names of the unique constraints and indexes guarding purchases, see migrations.
const (
	constraintPaymentSession = "uq_purchases_payment_session_id"
	constraintRedemptionCode = "uq_purchases_redemption_code"
	constraintSeatCoordinate = "uq_purchase_seats_showing_coordinate"
)

type PostgresPurchaseRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPurchaseRepository(db *pgxpool.Pool) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{
		db: db,
	}
}

// Create inserts the purchase and its seats in one transaction. Unique violations are
// reported as ErrDuplicatePaymentSession, ErrDuplicateRedemptionCode or ErrSeatAlreadySold.
func (p *PostgresPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO purchases (
				buyer_id,
				showing_id,
				hall,
				purchase_date,
				total_price,
				redemption_code,
				payment_session_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, purchase_date
		`

		err := tx.QueryRow(
			ctx,
			query,
			purchase.BuyerID,
			purchase.ShowingID,
			purchase.Hall,
			purchase.PurchaseDate,
			purchase.TotalPrice,
			purchase.RedemptionCode,
			purchase.PaymentSessionID,
		).Scan(&purchase.ID, &purchase.PurchaseDate)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(purchase.Seats))
		for _, seat := range purchase.Seats {
			rows = append(rows, []any{
				purchase.ID,
				purchase.ShowingID,
				seat.Coordinate.Row,
				seat.Coordinate.Col,
				seat.RowLabel,
				seat.SeatNumber,
				seat.SeatText,
				seat.Price,
				string(seat.Fare),
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"purchase_seats"},
			[]string{
				"purchase_id",
				"showing_id",
				"row_index",
				"col_index",
				"row_label",
				"seat_number",
				"seat",
				"price",
				"fare_class",
			},
			pgx.CopyFromRows(rows),
		)

		return err
	})

	return classifyPurchaseError(err)
}

func classifyPurchaseError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case constraintPaymentSession:
		return domain.ErrDuplicatePaymentSession
	case constraintRedemptionCode:
		return domain.ErrDuplicateRedemptionCode
	case constraintSeatCoordinate:
		return domain.ErrSeatAlreadySold
	default:
		return err
	}
}

func (p *PostgresPurchaseRepository) GetByPaymentSessionID(ctx context.Context, sessionID string) (*domain.Purchase, error) {
	query := `
		SELECT
			id,
			buyer_id,
			showing_id,
			hall,
			purchase_date,
			total_price,
			redemption_code,
			payment_session_id
		FROM purchases
		WHERE payment_session_id = $1
	`

	var purchase domain.Purchase

	err := p.db.QueryRow(ctx, query, sessionID).Scan(
		&purchase.ID,
		&purchase.BuyerID,
		&purchase.ShowingID,
		&purchase.Hall,
		&purchase.PurchaseDate,
		&purchase.TotalPrice,
		&purchase.RedemptionCode,
		&purchase.PaymentSessionID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seats, err := p.retrievePurchaseSeats(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}

	purchase.Seats = seats

	return &purchase, nil
}

func (p *PostgresPurchaseRepository) retrievePurchaseSeats(ctx context.Context, purchaseID int) ([]domain.SoldSeat, error) {
	query := `
		SELECT row_index, col_index, row_label, seat_number, seat, price, fare_class
		FROM purchase_seats
		WHERE purchase_id = $1
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.SoldSeat, 0)

	for rows.Next() {
		var (
			row  seatRow
			seat domain.SoldSeat
			fare pgtype.Text
		)

		err := rows.Scan(
			&row.rowIndex,
			&row.colIndex,
			&row.rowLabel,
			&row.seatNumber,
			&row.seatText,
			&seat.Price,
			&fare,
		)
		if err != nil {
			return nil, err
		}

		soldRow := row.toDomain()
		if coord, ok := domain.ResolveSeat(soldRow.Address()); ok {
			seat.Coordinate = coord
		}
		seat.RowLabel = soldRow.RowLabel
		if soldRow.SeatNumber != nil {
			seat.SeatNumber = *soldRow.SeatNumber
		}
		seat.SeatText = soldRow.SeatText
		seat.Fare = domain.ParseFareClass(fare.String)

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresPurchaseRepository) RedemptionCodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM purchases WHERE redemption_code = $1)`

	var exists bool

	err := p.db.QueryRow(ctx, query, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check redemption code: %w", err)
	}

	return exists, nil
}

// GetSoldSeatsByShowing returns every persisted seat line item of the showing, including rows
// written before seats were stored as coordinates.
func (p *PostgresPurchaseRepository) GetSoldSeatsByShowing(ctx context.Context, showingID int) ([]domain.SoldSeatRow, error) {
	query := `
		SELECT ps.row_index, ps.col_index, ps.row_label, ps.seat_number, ps.seat
		FROM purchase_seats ps
		JOIN purchases p ON ps.purchase_id = p.id
		WHERE p.showing_id = $1
	`

	rows, err := p.db.Query(ctx, query, showingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	soldSeats := make([]domain.SoldSeatRow, 0)

	for rows.Next() {
		var row seatRow

		err := rows.Scan(&row.rowIndex, &row.colIndex, &row.rowLabel, &row.seatNumber, &row.seatText)
		if err != nil {
			return nil, err
		}

		soldSeats = append(soldSeats, row.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return soldSeats, nil
}

// seatRow scans the nullable seat columns of purchase_seats.
type seatRow struct {
	rowIndex   pgtype.Int4
	colIndex   pgtype.Int4
	rowLabel   pgtype.Text
	seatNumber pgtype.Int4
	seatText   pgtype.Text
}

func (r seatRow) toDomain() domain.SoldSeatRow {
	return domain.SoldSeatRow{
		RowIndex:   intOrNil(r.rowIndex),
		ColIndex:   intOrNil(r.colIndex),
		RowLabel:   r.rowLabel.String,
		SeatNumber: intOrNil(r.seatNumber),
		SeatText:   r.seatText.String,
	}
}

func intOrNil(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}

	n := int(v.Int32)
	return &n
}
