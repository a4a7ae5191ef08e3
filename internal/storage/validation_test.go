package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/purse/internal/service"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{name: "valid string", str: "test", paramName: "param"},
		{name: "empty string", str: "", paramName: "param", wantErr: true},
		{name: "whitespace only", str: "   \t", paramName: "param", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error = %v, want ErrEmptyString", err)
			}
		})
	}
}

func TestValidateSlot(t *testing.T) {
	for _, slot := range service.AllSlots {
		if err := validateSlot(slot); err != nil {
			t.Errorf("validateSlot(%q) = %v, want nil", slot, err)
		}
	}

	if err := validateSlot(service.Slot("settings")); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("validateSlot(unknown) = %v, want ErrUnknownSlot", err)
	}
}

func TestValidatePayloads(t *testing.T) {
	tests := []struct {
		payloads map[service.Slot][]byte
		wantErr  error
		name     string
	}{
		{
			name:     "valid payloads",
			payloads: map[service.Slot][]byte{service.SlotExpenses: []byte("[]")},
		},
		{
			name:     "empty map is allowed",
			payloads: map[service.Slot][]byte{},
		},
		{
			name:     "nil map",
			payloads: nil,
			wantErr:  ErrNilParameter,
		},
		{
			name:     "nil payload",
			payloads: map[service.Slot][]byte{service.SlotProfile: nil},
			wantErr:  ErrNilParameter,
		},
		{
			name:     "unknown slot",
			payloads: map[service.Slot][]byte{service.Slot("bogus"): []byte("{}")},
			wantErr:  ErrUnknownSlot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePayloads(tt.payloads)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validatePayloads() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validatePayloads() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReceipt(t *testing.T) {
	tests := []struct {
		wantErr   error
		name      string
		expenseID string
		image     []byte
	}{
		{name: "valid receipt", expenseID: "exp-1", image: []byte{0x89, 'P', 'N', 'G'}},
		{name: "missing expense id", expenseID: "", image: []byte("x"), wantErr: ErrEmptyString},
		{name: "empty image", expenseID: "exp-1", image: nil, wantErr: ErrNilParameter},
		{name: "oversized image", expenseID: "exp-1", image: make([]byte, MaxReceiptSize+1), wantErr: ErrReceiptTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReceipt(tt.expenseID, tt.image)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateReceipt() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateReceipt() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
