// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/afiqzak/serai-booking-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dateLayout = "2006-01-02"

// ErrBookingNotFound возвращается, если бронирование не найдено.
var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrBookingCompleted возвращается при попытке принять платёж по уже оплаченному бронированию.
	ErrBookingCompleted = errors.New("booking already completed")
)

// PostgresRepository предоставляет доступ к хранилищу бронирований в PostgreSQL.
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

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Повторяем только конфликты сериализации и взаимные блокировки;
		// разрывы соединения pgxpool в основном чинит сам.
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
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// toSen переводит сумму в ринггитах в сены для хранения.
func toSen(v float64) int64 {
	if v >= 0 {
		return int64(v*100 + 0.5)
	}
	return int64(v*100 - 0.5)
}

// fromSen переводит сумму из сенов в ринггиты.
func fromSen(v int64) float64 {
	return float64(v) / 100
}

// CreateBooking сохраняет бронирование, присваивая ему идентификатор
// и время создания, и возвращает сохранённую запись.
func (r *PostgresRepository) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	b.ID = uuid.NewString()

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO bookings
			     (id, guest_name, address, phone, adults, children, vehicle_plate,
			      check_in, check_out, rooms, payment_type,
			      total_sen, deposit_sen, balance_sen, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			 RETURNING created_at`,
			b.ID, b.Name, b.Address, b.Phone, b.Adults, b.Children, b.VehiclePlate,
			b.CheckIn, b.CheckOut, b.Rooms, string(b.PaymentType),
			toSen(b.Amounts.Total), toSen(b.Amounts.Deposit), toSen(b.Amounts.Balance), string(b.Status),
		).Scan(&b.CreatedAt)
	})
	if err != nil {
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	return b, nil
}

const bookingColumns = `id, guest_name, address, phone, adults, children, vehicle_plate,
	check_in, check_out, rooms, payment_type,
	total_sen, deposit_sen, balance_sen, status, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b                   model.Booking
		checkIn, checkOut   time.Time
		totalSen            int64
		depositSen          int64
		balanceSen          int64
		paymentType, status string
	)

	err := row.Scan(
		&b.ID, &b.Name, &b.Address, &b.Phone, &b.Adults, &b.Children, &b.VehiclePlate,
		&checkIn, &checkOut, &b.Rooms, &paymentType,
		&totalSen, &depositSen, &balanceSen, &status, &b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}

	b.CheckIn = checkIn.Format(dateLayout)
	b.CheckOut = checkOut.Format(dateLayout)
	b.PaymentType = model.PaymentType(paymentType)
	b.Status = model.Status(status)
	b.Amounts = model.Amounts{
		Total:   fromSen(totalSen),
		Deposit: fromSen(depositSen),
		Balance: fromSen(balanceSen),
	}

	return b, nil
}

func (r *PostgresRepository) queryBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	var res []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetBookings возвращает все бронирования, новые первыми.
func (r *PostgresRepository) GetBookings(ctx context.Context) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

// GetBookingsByStatus возвращает бронирования с указанным статусом, новые первыми.
func (r *PostgresRepository) GetBookingsByStatus(ctx context.Context, status model.Status) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
}

// GetBookingByID возвращает бронирование по идентификатору.
func (r *PostgresRepository) GetBookingByID(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingPayment добавляет платёж к задатку бронирования и пересчитывает
// остаток и статус. Строка блокируется, чтобы параллельные платежи
// не увели остаток в минус. Обновлённая запись возвращается из того же
// запроса: перечитывание после фиксации при повторе закрытой транзакции
// выдавало бы ErrBookingCompleted за уже принятый платёж.
func (r *PostgresRepository) UpdateBookingPayment(ctx context.Context, id string, amountSen int64) (model.Booking, error) {
	var updated model.Booking

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var depositSen, balanceSen int64
		err = tx.QueryRow(ctx,
			`SELECT deposit_sen, balance_sen FROM bookings WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&depositSen, &balanceSen)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("lock booking: %w", err)
		}

		if balanceSen == 0 {
			return ErrBookingCompleted
		}

		paid := amountSen
		if paid > balanceSen {
			paid = balanceSen
		}

		depositSen += paid
		balanceSen -= paid

		status := model.StatusPending
		if balanceSen == 0 {
			status = model.StatusCompleted
		}

		updated, err = scanBooking(tx.QueryRow(ctx,
			`UPDATE bookings SET deposit_sen = $2, balance_sen = $3, status = $4
			 WHERE id = $1
			 RETURNING `+bookingColumns,
			id, depositSen, balanceSen, string(status),
		))
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return model.Booking{}, err
	}

	return updated, nil
}

// DeleteBooking удаляет бронирование.
func (r *PostgresRepository) DeleteBooking(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// GetStats возвращает сводные показатели: количество бронирований по
// статусам и выручку по завершённым бронированиям в сенах.
func (r *PostgresRepository) GetStats(ctx context.Context) (model.Stats, int64, error) {
	var (
		stats      model.Stats
		revenueSen int64
	)

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = $1),
		        COUNT(*) FILTER (WHERE status = $2),
		        COALESCE(SUM(total_sen) FILTER (WHERE status = $2), 0)
		 FROM bookings`,
		string(model.StatusPending), string(model.StatusCompleted),
	).Scan(&stats.TotalBookings, &stats.PendingBookings, &stats.CompletedBookings, &revenueSen)
	if err != nil {
		return model.Stats{}, 0, fmt.Errorf("select stats: %w", err)
	}

	return stats, revenueSen, nil
}

// GetBookingsOverlapping возвращает бронирования, пересекающиеся с указанным
// интервалом дат. Интервал полуоткрытый: день выезда не занят.
func (r *PostgresRepository) GetBookingsOverlapping(ctx context.Context, from, to string) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE check_in < $2 AND check_out > $1
		 ORDER BY check_in`,
		from, to)
}

// GetCheckinsDue возвращает неоплаченные бронирования с заездом в указанную дату.
func (r *PostgresRepository) GetCheckinsDue(ctx context.Context, date string) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE status = $1 AND check_in = $2
		 ORDER BY created_at`,
		string(model.StatusPending), date)
}
