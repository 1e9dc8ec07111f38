package finalize

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/internal/assets"
	"github.com/paylivhq/payliv-backend/internal/dropship"
	"github.com/paylivhq/payliv-backend/internal/ledger"
	"github.com/paylivhq/payliv-backend/internal/notifications"
	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// errRacedFinalizer signals another worker wrote the marker entry while this
// run was in flight. The transaction rolls back and the order is done.
var errRacedFinalizer = stdErrors.New("finalization completed by a concurrent run")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the post-payment side effects exactly once per order: ledger
// splits, dropship fan-out, digital unlock and notification enqueueing, all in
// one transaction keyed by the seller's sale_credit entry.
type Service struct {
	tx        txRunner
	orders    orders.Repository
	ledger    *ledger.Service
	dropship  dropship.Repository
	assets    assets.Repository
	notify    *notifications.Service
	directory notifications.Directory
	logg      *logger.Logger
	feeBPS    int64
}

func NewService(
	tx txRunner,
	orderRepo orders.Repository,
	ledgerSvc *ledger.Service,
	dropshipRepo dropship.Repository,
	assetRepo assets.Repository,
	notify *notifications.Service,
	directory notifications.Directory,
	logg *logger.Logger,
	platformFeeBPS int64,
) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service is required")
	}
	if dropshipRepo == nil {
		return nil, fmt.Errorf("dropship repository is required")
	}
	if assetRepo == nil {
		return nil, fmt.Errorf("asset repository is required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("contact directory is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if platformFeeBPS < 0 || platformFeeBPS > 10000 {
		return nil, fmt.Errorf("platform fee must be between 0 and 10000 basis points")
	}
	return &Service{
		tx:        tx,
		orders:    orderRepo,
		ledger:    ledgerSvc,
		dropship:  dropshipRepo,
		assets:    assetRepo,
		notify:    notify,
		directory: directory,
		logg:      logg,
		feeBPS:    platformFeeBPS,
	}, nil
}

// EnsureFinalized applies the order's side effects if they have not been
// applied yet. Safe to call any number of times and from concurrent workers;
// only the first writer past the marker does any work.
func (s *Service) EnsureFinalized(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeNotFound, "order not found")
		}
		return fmt.Errorf("loading order for finalization: %w", err)
	}

	switch order.Status {
	case enums.OrderStatusPaid, enums.OrderStatusDelivered:
	default:
		return errors.New(errors.CodeStateConflict, "only paid orders can be finalized").
			WithDetails(map[string]any{"current": order.Status.String()})
	}

	done, err := s.ledger.HasOrderEntry(ctx, order.ID, order.SellerUserID, enums.LedgerEntryTypeSaleCredit)
	if err != nil {
		return fmt.Errorf("probing finalization marker: %w", err)
	}
	if done {
		return nil
	}

	split := computeSplit(order, s.feeBPS)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.applyAll(ctx, tx, order, split)
	})
	if err != nil {
		if stdErrors.Is(err, errRacedFinalizer) {
			return nil
		}
		return err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"seller_credit": split.SellerNet.String(),
		"platform_fee":  split.PlatformFee.String(),
		"suppliers":     len(split.SupplierTotals),
	})
	s.logg.Info(ctx, "order finalized")
	return nil
}

func (s *Service) applyAll(ctx context.Context, tx *gorm.DB, order *models.Order, split orderSplit) error {
	// The seller's sale_credit goes first: its uniqueness per order is what
	// makes the whole block run at most once.
	err := s.ledger.Credit(ctx, tx, ledger.CreditInput{
		UserID:  order.SellerUserID,
		Amount:  split.SellerNet,
		Type:    enums.LedgerEntryTypeSaleCredit,
		OrderID: order.ID,
	})
	if err != nil {
		if stdErrors.Is(err, ledger.ErrAlreadyApplied) {
			return errRacedFinalizer
		}
		return fmt.Errorf("crediting seller: %w", err)
	}

	for supplierID, amount := range split.SupplierTotals {
		err := s.ledger.Credit(ctx, tx, ledger.CreditInput{
			UserID:  supplierID,
			Amount:  amount,
			Type:    enums.LedgerEntryTypeSupplierCredit,
			OrderID: order.ID,
		})
		if err != nil && !stdErrors.Is(err, ledger.ErrAlreadyApplied) {
			return fmt.Errorf("crediting supplier %s: %w", supplierID, err)
		}
	}

	if err := s.fanOutDropship(ctx, tx, order); err != nil {
		return err
	}
	if err := s.unlockDigital(ctx, tx, order); err != nil {
		return err
	}

	if err := s.notify.Enqueue(ctx, tx, notifications.OrderConfirmation(order)); err != nil {
		return err
	}
	sellerEmail, err := s.directory.EmailFor(ctx, order.SellerUserID)
	if err != nil {
		return err
	}
	return s.notify.Enqueue(ctx, tx, notifications.SellerNewSale(order, sellerEmail))
}

func (s *Service) fanOutDropship(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.dropship.WithTx(tx)
	for _, line := range order.Items {
		if !line.IsDropship() {
			continue
		}
		item := &models.DropshipOrderItem{
			OrderID:           order.ID,
			LineItemID:        line.ID,
			SupplierUserID:    *line.SupplierUserID,
			SellerStoreID:     order.StoreID,
			SellerUserID:      order.SellerUserID,
			ProductID:         line.ProductID,
			Qty:               line.Qty,
			WholesalePrice:    wholesaleOf(line),
			SellerPrice:       line.UnitPrice,
			FulfillmentStatus: enums.FulfillmentStatusConfirmed,
		}
		if err := repo.Insert(ctx, item); err != nil {
			return fmt.Errorf("creating dropship item for line %s: %w", line.ID, err)
		}

		supplierEmail, err := s.directory.EmailFor(ctx, item.SupplierUserID)
		if err != nil {
			return err
		}
		if err := s.notify.Enqueue(ctx, tx, notifications.SupplierNewItem(item, supplierEmail)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) unlockDigital(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.assets.WithTx(tx)
	for _, line := range order.Items {
		if !line.IsDigital || line.StoragePath == nil || *line.StoragePath == "" {
			continue
		}
		asset := &models.DigitalAsset{
			OrderID:       order.ID,
			LineItemID:    line.ID,
			ProductID:     line.ProductID,
			ProductName:   line.Name,
			StoragePath:   *line.StoragePath,
			CustomerEmail: strings.ToLower(strings.TrimSpace(order.CustomerEmail)),
		}
		if err := repo.Insert(ctx, asset); err != nil {
			return fmt.Errorf("unlocking asset for line %s: %w", line.ID, err)
		}
	}
	return nil
}

type orderSplit struct {
	SellerNet      decimal.Decimal
	PlatformFee    decimal.Decimal
	SupplierTotals map[uuid.UUID]decimal.Decimal
}

// computeSplit divides the order total: each supplier receives their wholesale
// amount, the seller keeps the rest minus the optional platform fee. Supplier
// amounts are aggregated per supplier since the ledger holds one entry per
// order, user and type.
func computeSplit(order *models.Order, feeBPS int64) orderSplit {
	sellerGross := decimal.Zero
	supplierTotals := make(map[uuid.UUID]decimal.Decimal)

	for _, line := range order.Items {
		lineTotal := line.LineTotal()
		if !line.IsDropship() {
			sellerGross = sellerGross.Add(lineTotal)
			continue
		}
		wholesale := wholesaleOf(line).Mul(decimal.NewFromInt(int64(line.Qty)))
		supplierID := *line.SupplierUserID
		supplierTotals[supplierID] = supplierTotals[supplierID].Add(wholesale)
		sellerGross = sellerGross.Add(lineTotal.Sub(wholesale))
	}

	fee := decimal.Zero
	if feeBPS > 0 {
		fee = sellerGross.Mul(decimal.NewFromInt(feeBPS)).Div(decimal.NewFromInt(10000)).Round(2)
	}

	return orderSplit{
		SellerNet:      sellerGross.Sub(fee),
		PlatformFee:    fee,
		SupplierTotals: supplierTotals,
	}
}

func wholesaleOf(line models.OrderLineItem) decimal.Decimal {
	if line.WholesalePrice == nil {
		return decimal.Zero
	}
	return *line.WholesalePrice
}
