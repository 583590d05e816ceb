package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopkit/pricing-engine/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT c.code, c.discount_type, c.value, c.start_at, c.end_at,
		c.min_cart_value, c.usage_limit, c.times_used, c.enabled,
		COALESCE(array_agg(cp.product_id) FILTER (WHERE cp.product_id IS NOT NULL), '{}')
		FROM coupons c
		LEFT JOIN coupon_products cp ON cp.coupon_code = c.code
		WHERE UPPER(c.code) = UPPER($1)
		GROUP BY c.code`

	// The WHERE guard makes redemption an atomic increment-and-check: two
	// orders racing for the last redemption cannot both succeed.
	redeemCouponSQL = `UPDATE coupons
		SET times_used = times_used + 1, updated_at = now()
		WHERE UPPER(code) = UPPER($1)
		AND (usage_limit IS NULL OR times_used < usage_limit)`
)

var _ coupon.Store = (*CouponStore)(nil)

// CouponStore implements coupon.Store backed by PostgreSQL.
type CouponStore struct {
	pool *pgxpool.Pool
}

// NewCouponStore returns a CouponStore that uses the given pool.
func NewCouponStore(pool *pgxpool.Pool) *CouponStore {
	return &CouponStore{pool: pool}
}

// FindByCode looks up a coupon by its code, case-insensitively, including its
// product restriction set. Returns coupon.ErrNotFound when no coupon exists.
func (s *CouponStore) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Redeem increments the usage counter while it is still below the limit.
// Zero rows affected means the limit was reached concurrently.
func (s *CouponStore) Redeem(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, redeemCouponSQL, code)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrLimitReached
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		value        decimal.Decimal
		minCart      decimal.Decimal
		usageLimit   *int32
		timesUsed    int32
		startAt      time.Time
		endAt        time.Time
		products     []string
	)
	err := row.Scan(
		&c.Code, &discountType, &value, &startAt, &endAt,
		&minCart, &usageLimit, &timesUsed, &c.Enabled, &products,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.Value = value
	c.StartAt = startAt
	c.EndAt = endAt
	c.MinCartValue = minCart
	c.TimesUsed = int(timesUsed)
	c.Products = products
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimit = &limit
	}
	return c, err
}
