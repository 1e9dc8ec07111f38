package notifications

import (
	"fmt"
	"html"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Builders below freeze each email's dedupe key, subject and body at enqueue
// time so the dispatcher stays a dumb pipe.

func OrderConfirmation(order *models.Order) EnqueueInput {
	orderID := order.ID
	return EnqueueInput{
		DedupeKey: fmt.Sprintf("order_confirmation:%s", order.ID),
		Kind:      enums.NotificationKindOrderConfirmation,
		Recipient: order.CustomerEmail,
		Subject:   fmt.Sprintf("Your order %s is confirmed", shortID(order.ID.String())),
		BodyHTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>We received your payment of <strong>%s %s</strong>. Your order <strong>%s</strong> is confirmed and being prepared.</p>",
			html.EscapeString(order.CustomerName),
			order.TotalAmount.StringFixed(0),
			html.EscapeString(order.Currency.String()),
			shortID(order.ID.String()),
		),
		OrderID: &orderID,
	}
}

func SellerNewSale(order *models.Order, sellerEmail string) EnqueueInput {
	orderID := order.ID
	return EnqueueInput{
		DedupeKey: fmt.Sprintf("seller_new_sale:%s", order.ID),
		Kind:      enums.NotificationKindSellerNewSale,
		Recipient: sellerEmail,
		Subject:   fmt.Sprintf("New sale: %s %s", order.TotalAmount.StringFixed(0), order.Currency),
		BodyHTML: fmt.Sprintf(
			"<p>You made a sale of <strong>%s %s</strong> on order <strong>%s</strong>. Your share has been credited to your balance.</p>",
			order.TotalAmount.StringFixed(0),
			html.EscapeString(order.Currency.String()),
			shortID(order.ID.String()),
		),
		OrderID: &orderID,
	}
}

func SupplierNewItem(item *models.DropshipOrderItem, supplierEmail string) EnqueueInput {
	orderID := item.OrderID
	return EnqueueInput{
		DedupeKey: fmt.Sprintf("supplier_new_item:%s", item.ID),
		Kind:      enums.NotificationKindSupplierNewItem,
		Recipient: supplierEmail,
		Subject:   "New dropship order to fulfill",
		BodyHTML: fmt.Sprintf(
			"<p>You have a new paid item to fulfill: <strong>%d</strong> unit(s), order <strong>%s</strong>. Your wholesale amount of <strong>%s</strong> has been credited.</p>",
			item.Qty,
			shortID(item.OrderID.String()),
			item.WholesalePrice.StringFixed(0),
		),
		OrderID: &orderID,
	}
}

func DropshipShipped(item *models.DropshipOrderItem, sellerEmail string) EnqueueInput {
	orderID := item.OrderID
	return EnqueueInput{
		DedupeKey: fmt.Sprintf("dropship_shipped:%s", item.ID),
		Kind:      enums.NotificationKindDropshipShipped,
		Recipient: sellerEmail,
		Subject:   fmt.Sprintf("Item shipped on order %s", shortID(item.OrderID.String())),
		BodyHTML: fmt.Sprintf(
			"<p>The supplier shipped an item on order <strong>%s</strong>.</p>",
			shortID(item.OrderID.String()),
		),
		OrderID: &orderID,
	}
}

func DropshipDelivered(item *models.DropshipOrderItem, sellerEmail string) EnqueueInput {
	orderID := item.OrderID
	return EnqueueInput{
		DedupeKey: fmt.Sprintf("dropship_delivered:%s", item.ID),
		Kind:      enums.NotificationKindDropshipDelivered,
		Recipient: sellerEmail,
		Subject:   fmt.Sprintf("Item delivered on order %s", shortID(item.OrderID.String())),
		BodyHTML: fmt.Sprintf(
			"<p>The supplier marked an item on order <strong>%s</strong> as delivered.</p>",
			shortID(item.OrderID.String()),
		),
		OrderID: &orderID,
	}
}

func PayoutApproved(payout *models.Payout, email string) EnqueueInput {
	payoutID := payout.ID
	return EnqueueInput{
		DedupeKey: fmt.Sprintf("payout_approved:%s", payout.ID),
		Kind:      enums.NotificationKindPayoutApproved,
		Recipient: email,
		Subject:   "Your payout was approved",
		BodyHTML: fmt.Sprintf(
			"<p>Your payout of <strong>%s</strong> to %s was approved and is on its way.</p>",
			payout.Amount.StringFixed(0),
			html.EscapeString(payout.PhoneNumber),
		),
		PayoutID: &payoutID,
	}
}

func PayoutRejected(payout *models.Payout, email string) EnqueueInput {
	payoutID := payout.ID
	reason := "not specified"
	if payout.RejectionReason != nil && *payout.RejectionReason != "" {
		reason = *payout.RejectionReason
	}
	return EnqueueInput{
		DedupeKey: fmt.Sprintf("payout_rejected:%s", payout.ID),
		Kind:      enums.NotificationKindPayoutRejected,
		Recipient: email,
		Subject:   "Your payout was rejected",
		BodyHTML: fmt.Sprintf(
			"<p>Your payout of <strong>%s</strong> was rejected. Reason: %s. Your balance was not debited.</p>",
			payout.Amount.StringFixed(0),
			html.EscapeString(reason),
		),
		PayoutID: &payoutID,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
