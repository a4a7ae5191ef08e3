// Package storage provides the data persistence layer for the purse application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/service"
)

// Validation and lookup errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrUnknownSlot     = errors.New("unknown slot")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrReceiptTooLarge = errors.New("receipt image too large")
)

// MaxReceiptSize bounds a single receipt image.
const MaxReceiptSize = 10 << 20

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSlot ensures the slot is one of the known ledger slots.
func validateSlot(slot service.Slot) error {
	for _, known := range service.AllSlots {
		if slot == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
}

// validatePayloads validates a batch of slot writes.
func validatePayloads(payloads map[service.Slot][]byte) error {
	if payloads == nil {
		return fmt.Errorf("%w: payloads", ErrNilParameter)
	}
	for slot, payload := range payloads {
		if err := validateSlot(slot); err != nil {
			return err
		}
		if payload == nil {
			return fmt.Errorf("%w: payload for slot %s", ErrNilParameter, slot)
		}
	}
	return nil
}

// validateReceipt validates a receipt write.
func validateReceipt(expenseID string, image []byte) error {
	if err := validateString(expenseID, "expenseID"); err != nil {
		return err
	}
	if len(image) == 0 {
		return fmt.Errorf("%w: image", ErrNilParameter)
	}
	if len(image) > MaxReceiptSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrReceiptTooLarge, len(image), MaxReceiptSize)
	}
	return nil
}
