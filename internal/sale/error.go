package sale

import "errors"

var (
	ErrSaleNotFound      = errors.New("sale not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrSaleLocked        = errors.New("sale can no longer be modified")
	ErrCommentNotAllowed = errors.New("comments are not accepted for this order")
)
