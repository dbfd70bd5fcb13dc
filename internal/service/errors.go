package service

import "errors"

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrCheckoutNotFound = errors.New("checkout not found")
)
