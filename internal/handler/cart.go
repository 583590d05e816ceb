package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
	"github.com/shopkit/pricing-engine/internal/domain/product"
)

// GetCart returns the client's cart, creating one when the token is missing
// or unknown. The cart token is echoed in the X-Cart-Token response header.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetOrCreate(r.Context(), r.Header.Get(CartTokenHeader))
	if err != nil {
		h.respondInternal(w, errors.Wrap(err, "get cart"))
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

type addItemRequest struct {
	ProductID string
	Quantity  int
}

func decodeAddItemRequest(body []byte) (addItemRequest, error) {
	var req addItemRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// AddCartItem puts a product into the cart at the current catalog price.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := decodeAddItemRequest(body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.respondError(w, http.StatusBadRequest, "productId is required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), r.Header.Get(CartTokenHeader), req.ProductID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

// UpdateCartItem changes an item's quantity.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity := 0
	d := jx.DecodeBytes(body)
	decodeErr := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		if key == "quantity" {
			quantity, err = d.Int()
			return err
		}
		return d.Skip()
	})
	if decodeErr != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.carts.UpdateItemQuantity(r.Context(), r.Header.Get(CartTokenHeader), itemID, quantity)
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

// RemoveCartItem deletes an item from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), r.Header.Get(CartTokenHeader), itemID)
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

// respondCartError maps cart and catalog errors to HTTP responses.
func (h *Handler) respondCartError(w http.ResponseWriter, err error) {
	var stockErr *product.InsufficientStockError
	switch {
	case errors.Is(err, cart.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "cart not found")
	case errors.Is(err, cart.ErrItemNotFound):
		h.respondError(w, http.StatusNotFound, "cart item not found")
	case errors.Is(err, cart.ErrInvalidQuantity):
		h.respondError(w, http.StatusBadRequest, "quantity must be at least 1")
	case errors.Is(err, product.ErrNotFound):
		h.respondError(w, http.StatusUnprocessableEntity, "product not found")
	case errors.As(err, &stockErr):
		h.respondError(w, http.StatusConflict, stockErr.Error())
	default:
		h.respondInternal(w, err)
	}
}

func (h *Handler) respondCart(w http.ResponseWriter, status int, c *cart.Cart) {
	w.Header().Set(CartTokenHeader, c.Token)
	h.respond(w, status, func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("token")
	e.Str(c.Token)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(it.ID)
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		encodeDecimal(e, it.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeDecimal(e, c.Snapshot().Subtotal())
	e.ObjEnd()
}
