package posdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/KodyPay/kp-order-sync/internal/hash"
	"github.com/KodyPay/kp-order-sync/internal/kody"
)

// ErrInvalidAmount marks orders whose decimal amount strings do not parse.
// These are data faults: retrying does not help, the order is skipped.
var ErrInvalidAmount = errors.New("invalid amount")

// menuItemNamePlaceholder is stored when the integration id does not resolve
// against the POS menu_item table.
const menuItemNamePlaceholder = "not fill yet"

// Gicater table_name is limited; the location label is cut to fit.
const maxLocationLabel = 25

// Writer maps a Kody order into the multi-row Gicater transaction.
type Writer struct {
	db PgxIface
}

func NewWriter(db PgxIface) *Writer {
	return &Writer{db: db}
}

// SaveOrder writes one Kody order into the POS schema as a single
// transaction: the order_head row (keyed by the hashed Kody order id), one
// order_detail row per line item, the print and payment bookkeeping rows and
// the payment row. Everything commits or rolls back together; a partial order
// is never visible to the POS. Returns the generated order_head id.
func (w *Writer) SaveOrder(ctx context.Context, order kody.Order) (string, error) {
	totalAmount, err := decimal.NewFromString(order.TotalAmount)
	if err != nil {
		return "", fmt.Errorf("%w: total %q of order %s: %s", ErrInvalidAmount, order.TotalAmount, order.OrderID, err)
	}
	serviceAmount := decimal.Zero
	if order.ServiceChargeAmount != "" {
		serviceAmount, err = decimal.NewFromString(order.ServiceChargeAmount)
		if err != nil {
			return "", fmt.Errorf("%w: service charge %q of order %s: %s", ErrInvalidAmount, order.ServiceChargeAmount, order.OrderID, err)
		}
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin POS transaction: %w", err)
	}
	// No-op after a successful commit.
	defer func(tx pgx.Tx) {
		_ = tx.Rollback(ctx)
	}(tx)

	var orderHeadID int64
	err = tx.QueryRow(ctx, insertOrderHead,
		1,                          // check_id
		SourceMarker,               // pos_name
		hash.HashOrderID(order.OrderID), // check_name
		order.DateCreated,
		totalAmount, // should_amount
		totalAmount, // actual_amount
		0,           // is_make, not yet prepared
		-1,          // table_id, collect at counter
		toGoLabel(order.LocationNumber),
		1, // eat_type, ToGo
		order.OrderNotes,
		serviceAmount,
		1, // status, paid
	).Scan(&orderHeadID)
	if err != nil {
		return "", fmt.Errorf("failed to insert order_head for order %s: %w", order.OrderID, err)
	}

	menuItemNames, err := w.resolveMenuItemNames(ctx, tx, order.Items)
	if err != nil {
		return "", err
	}

	for _, item := range order.Items {
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return "", fmt.Errorf("%w: unit price %q of item %s in order %s: %s",
				ErrInvalidAmount, item.UnitPrice, item.ItemID, order.OrderID, err)
		}
		quantity := int64(item.Quantity)
		salesAmount := unitPrice.Mul(decimal.NewFromInt(quantity))

		menuItemID, name := 0, menuItemNamePlaceholder
		if id, perr := strconv.Atoi(item.IntegrationID); perr == nil {
			menuItemID = id
			if resolved, ok := menuItemNames[id]; ok {
				name = resolved
			}
		}

		_, err = tx.Exec(ctx, insertOrderDetail,
			orderHeadID, 1, menuItemID, name,
			unitPrice, quantity, unitPrice, salesAmount,
			item.ItemNotes, order.DateCreated, 0)
		if err != nil {
			return "", fmt.Errorf("failed to insert order_detail for order %s: %w", order.OrderID, err)
		}
	}

	printLabel := fmt.Sprintf("**%s %s**", SourceMarker, time.Now().Format("2006-01-02 15:04:05"))
	_, err = tx.Exec(ctx, insertPrintRecord, orderHeadID, printLabel, SourceMarker, SourceMarker)
	if err != nil {
		return "", fmt.Errorf("failed to insert print record for order %s: %w", order.OrderID, err)
	}

	var orderDetailID int64
	paymentInfo := fmt.Sprintf("%s:%s", SourceMarker, totalAmount.StringFixed(2))
	err = tx.QueryRow(ctx, insertPaymentRecord, orderHeadID, paymentInfo, SourceMarker, SourceMarker).Scan(&orderDetailID)
	if err != nil {
		return "", fmt.Errorf("failed to insert payment record for order %s: %w", order.OrderID, err)
	}

	var tenderMediaID int
	err = tx.QueryRow(ctx, selectTenderMedia).Scan(&tenderMediaID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("failed to look up tender media: %w", err)
		}
		tenderMediaID = 0
	}

	_, err = tx.Exec(ctx, insertPayment, orderHeadID, tenderMediaID, totalAmount, orderDetailID)
	if err != nil {
		return "", fmt.Errorf("failed to insert payment for order %s: %w", order.OrderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit POS transaction for order %s: %w", order.OrderID, err)
	}

	zap.S().Infof("Saved Kody order %s to POS with order_head_id %d", order.OrderID, orderHeadID)
	return strconv.FormatInt(orderHeadID, 10), nil
}

// resolveMenuItemNames fetches the display names for every parseable
// integration id in one round trip. Missing ids are tolerated.
func (w *Writer) resolveMenuItemNames(ctx context.Context, tx pgx.Tx, items []kody.OrderItem) (map[int]string, error) {
	ids := make([]int32, 0, len(items))
	seen := make(map[int32]struct{}, len(items))
	for _, item := range items {
		if id, err := strconv.Atoi(item.IntegrationID); err == nil {
			if _, dup := seen[int32(id)]; !dup {
				seen[int32(id)] = struct{}{}
				ids = append(ids, int32(id))
			}
		}
	}
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := tx.Query(ctx, selectMenuItemNames, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up menu item names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int32
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan menu item row: %w", err)
		}
		names[int(id)] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read menu item rows: %w", err)
	}
	return names, nil
}

func toGoLabel(locationNumber string) string {
	if len(locationNumber) > maxLocationLabel {
		locationNumber = locationNumber[:maxLocationLabel]
	}
	return "ToGo-" + locationNumber
}
