package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFeePolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *FeePolicy)
		wantErr string
	}{
		{name: "defaults", modify: func(p *FeePolicy) {}},
		{name: "single installment", modify: func(p *FeePolicy) { p.MaxInstallments = 1 }},
		{
			name:    "no installments",
			modify:  func(p *FeePolicy) { p.MaxInstallments = 0 },
			wantErr: "maxInstallments must be between 1 and 5, got 0",
		},
		{
			name:    "more installments than the schema allows",
			modify:  func(p *FeePolicy) { p.MaxInstallments = 6 },
			wantErr: "maxInstallments must be between 1 and 5, got 6",
		},
		{
			name:    "free school",
			modify:  func(p *FeePolicy) { p.TotalFee = decimal.Zero },
			wantErr: "total must be between 0 and 99999999.99, got 0",
		},
		{
			name:    "installment too large",
			modify:  func(p *FeePolicy) { p.InstallmentAmount = decimal.RequireFromString("100000000") },
			wantErr: "installment must be between 0 and 99999999.99, got 100000000",
		},
		{
			name:    "negative threshold",
			modify:  func(p *FeePolicy) { p.UnlockThreshold = decimal.NewFromInt(-1) },
			wantErr: "unlockThreshold must be between 0 and 99999999.99, got -1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultFeePolicy()
			tt.modify(&policy)
			err := policy.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
