package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/api/responses"
	"github.com/paylivhq/payliv-backend/api/validators"
	internalorders "github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type createOrderItemRequest struct {
	ProductID      string           `json:"product_id" validate:"required,uuid"`
	Name           string           `json:"name" validate:"required,max=200"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	Qty            int              `json:"qty" validate:"required,gt=0"`
	IsDigital      bool             `json:"is_digital"`
	StoragePath    string           `json:"storage_path" validate:"max=500"`
	SupplierUserID *string          `json:"supplier_user_id" validate:"omitempty,uuid"`
	WholesalePrice *decimal.Decimal `json:"wholesale_price"`
}

type createOrderRequest struct {
	StoreID         string                   `json:"store_id" validate:"required,uuid"`
	SellerUserID    string                   `json:"seller_user_id" validate:"required,uuid"`
	CustomerName    string                   `json:"customer_name" validate:"required,max=200"`
	CustomerPhone   string                   `json:"customer_phone" validate:"required,max=30"`
	CustomerEmail   string                   `json:"customer_email" validate:"required,email"`
	CustomerAddress string                   `json:"customer_address" validate:"max=500"`
	Currency        string                   `json:"currency" validate:"required"`
	PaymentMethod   string                   `json:"payment_method" validate:"required"`
	Items           []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder records a new checkout as an unpaid order.
func CreateOrder(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildCreateInput(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func buildCreateInput(body createOrderRequest) (internalorders.CreateOrderInput, error) {
	storeID, _ := uuid.Parse(body.StoreID)
	sellerID, _ := uuid.Parse(body.SellerUserID)

	currency, err := enums.ParseCurrency(strings.ToUpper(body.Currency))
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown currency")
	}
	method, err := enums.ParsePaymentMethod(body.PaymentMethod)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	items := make([]internalorders.CreateLineItemInput, 0, len(body.Items))
	for _, in := range body.Items {
		productID, _ := uuid.Parse(in.ProductID)
		item := internalorders.CreateLineItemInput{
			ProductID:      productID,
			Name:           in.Name,
			UnitPrice:      in.UnitPrice,
			Qty:            in.Qty,
			IsDigital:      in.IsDigital,
			StoragePath:    in.StoragePath,
			WholesalePrice: in.WholesalePrice,
		}
		if in.SupplierUserID != nil {
			supplierID, _ := uuid.Parse(*in.SupplierUserID)
			item.SupplierUserID = &supplierID
		}
		items = append(items, item)
	}

	return internalorders.CreateOrderInput{
		StoreID:         storeID,
		SellerUserID:    sellerID,
		CustomerName:    body.CustomerName,
		CustomerPhone:   body.CustomerPhone,
		CustomerEmail:   body.CustomerEmail,
		CustomerAddress: body.CustomerAddress,
		Currency:        currency,
		PaymentMethod:   method,
		Items:           items,
	}, nil
}

// GetOrder returns one order with its items.
func GetOrder(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListStoreOrders returns a store's recent orders.
func ListStoreOrders(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByStore(r.Context(), storeID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
