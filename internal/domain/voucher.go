package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	VoucherIssued    = "Issued"
	VoucherRedeemed  = "Redeemed"
	VoucherCancelled = "Cancelled"
)

type VoucherAction string

const (
	VoucherRedeem VoucherAction = "redeem"
	VoucherCancel VoucherAction = "cancel"
)

var (
	ErrVoucherRedeemed  = errors.New("voucher already redeemed")
	ErrVoucherCancelled = errors.New("voucher already cancelled")
	ErrVoucherInactive  = errors.New("voucher is inactive")
	ErrVoucherExpired   = errors.New("voucher is outside its validity window")
	ErrVoucherAction    = errors.New("unknown voucher action")
	ErrTenderShortfall  = errors.New("voucher, cash and card do not cover the total")
)

// Apply moves an Issued voucher into a terminal state. Redeemed and Cancelled
// never transition again.
func (v *Voucher) Apply(action VoucherAction, at time.Time) error {
	switch v.Status {
	case VoucherRedeemed:
		return ErrVoucherRedeemed
	case VoucherCancelled:
		return ErrVoucherCancelled
	}

	switch action {
	case VoucherRedeem:
		if !v.Active {
			return ErrVoucherInactive
		}
		if at.Before(v.ValidFrom) || (!v.ValidUntil.IsZero() && at.After(v.ValidUntil)) {
			return ErrVoucherExpired
		}
		v.Status = VoucherRedeemed
		v.RedeemedAt = &at
	case VoucherCancel:
		v.Status = VoucherCancelled
		v.Active = false
		v.CancelledAt = &at
	default:
		return ErrVoucherAction
	}
	return nil
}

// Tender is the part of total the voucher settles.
func (v Voucher) Tender(total decimal.Decimal) decimal.Decimal {
	if v.Value.GreaterThan(total) {
		return total
	}
	return v.Value
}

// CoverTotal fails with ErrTenderShortfall when the voucher value plus cash
// and card is less than total.
func (v Voucher) CoverTotal(total, cash, card decimal.Decimal) error {
	if v.Value.Add(cash).Add(card).LessThan(total) {
		return ErrTenderShortfall
	}
	return nil
}
