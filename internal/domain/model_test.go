package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Valid account",
			account: Account{PublicKey: "0xabc", ConnectedAt: baseTime},
			wantErr: false,
		},
		{
			name:    "Empty public key should fail",
			account: Account{ConnectedAt: baseTime},
			wantErr: true,
			errMsg:  "account public key cannot be empty",
		},
		{
			name:    "Zero connected time should fail",
			account: Account{PublicKey: "0xabc"},
			wantErr: true,
			errMsg:  "account connected time must be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAccount_AssignsSessionID(t *testing.T) {
	identity := Identity{FamilyEVM: "0xabc"}

	first, err := NewAccount(identity, baseTime)
	require.NoError(t, err)
	second, err := NewAccount(identity, baseTime)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "0xabc", first.PublicKey)

	_, err = NewAccount(Identity{}, baseTime)
	assert.Error(t, err)
}

func TestNewAccount_CopiesIdentity(t *testing.T) {
	identity := Identity{FamilyStellar: "GABC", FamilyEVM: "0xabc"}

	account, err := NewAccount(identity, baseTime)
	require.NoError(t, err)
	identity[FamilyEVM] = "0xchanged"

	assert.Equal(t, "GABC", account.PublicKey)
	assert.Equal(t, "0xabc", account.Addresses[FamilyEVM])
}

func TestAccount_AddressFor(t *testing.T) {
	account := Account{
		PublicKey: "GABC",
		Addresses: Identity{FamilyStellar: "GABC", FamilyEVM: "0xabc"},
	}

	assert.Equal(t, "GABC", account.AddressFor(LedgerStellar))
	assert.Equal(t, "0xabc", account.AddressFor(LedgerEVM))
	assert.Equal(t, "0xabc", account.AddressFor(LedgerHyperPi))

	stellarOnly := Account{PublicKey: "GABC", Addresses: Identity{FamilyStellar: "GABC"}}
	assert.Equal(t, "GABC", stellarOnly.AddressFor(LedgerEVM))
}

func TestIdentity_Primary(t *testing.T) {
	assert.Equal(t, "GABC", Identity{FamilyStellar: "GABC", FamilyEVM: "0xabc"}.Primary())
	assert.Equal(t, "0xabc", Identity{FamilyEVM: "0xabc"}.Primary())
	assert.Empty(t, Identity(nil).Primary())
	assert.Equal(t, FamilyStellar, LedgerStellar.Family())
	assert.Equal(t, FamilyEVM, LedgerID("ledgerA").Family())
}

func TestBalances_Helpers(t *testing.T) {
	balances := ZeroBalances([]LedgerID{LedgerStellar, LedgerHyperPi, LedgerEVM})
	assert.Equal(t, []LedgerID{LedgerEVM, LedgerHyperPi, LedgerStellar}, balances.Ledgers())
	assert.True(t, balances.Total().IsZero())

	balances[LedgerStellar] = decimal.NewFromFloat(12.5)
	balances[LedgerHyperPi] = decimal.NewFromInt(1000)
	assert.True(t, decimal.NewFromFloat(1012.5).Equal(balances.Total()))

	clone := balances.Clone()
	clone[LedgerStellar] = decimal.Zero
	assert.True(t, decimal.NewFromFloat(12.5).Equal(balances[LedgerStellar]))

	list := balances.List()
	require.Len(t, list, 3)
	assert.Equal(t, LedgerEVM, list[0].Ledger)
	assert.Equal(t, LedgerStellar, list[2].Ledger)
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.Zero))
	assert.NoError(t, ValidateAmount(decimal.NewFromInt(5)))
	assert.ErrorIs(t, ValidateAmount(decimal.NewFromInt(-1)), ErrInvalidAmount)
}

func TestPriceSample_Validate(t *testing.T) {
	assert.NoError(t, sampleN(1).Validate())
	assert.Error(t, PriceSample{Price: decimal.NewFromInt(1)}.Validate())
	assert.Error(t, PriceSample{Timestamp: baseTime, Price: decimal.NewFromInt(-1)}.Validate())
	assert.Equal(t, 3.0, sampleN(3).Float())
}

func TestAlertState_RaiseIsSticky(t *testing.T) {
	var state AlertState

	raised := state.Raise(sampleN(1), baseTime)
	assert.True(t, raised)
	assert.True(t, state.Active)

	// A second raise keeps the original trigger
	raised = state.Raise(sampleN(2), baseTime.Add(time.Minute))
	assert.False(t, raised)
	assert.Equal(t, sampleN(1), state.Trigger)
	assert.Equal(t, baseTime, state.RaisedAt)

	state.Clear()
	assert.False(t, state.Active)
	assert.True(t, state.RaisedAt.IsZero())
}

func TestAlertEvaluatorFunc(t *testing.T) {
	var calledWith []PriceSample
	evaluator := AlertEvaluatorFunc(func(sample PriceSample, history []PriceSample) bool {
		calledWith = history
		return sample.Price.GreaterThan(decimal.NewFromInt(10))
	})

	history := []PriceSample{sampleN(1)}
	assert.False(t, evaluator.Evaluate(sampleN(2), history))
	assert.True(t, evaluator.Evaluate(sampleN(11), history))
	assert.Equal(t, history, calledWith)
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("boom")

	var connErr *ConnectionError
	err := error(&ConnectionError{Err: cause})
	assert.True(t, errors.As(err, &connErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection failed: boom", err.Error())

	queryErr := &QueryFailure{Ledger: LedgerStellar, Err: cause}
	assert.ErrorIs(t, queryErr, cause)
	assert.Equal(t, "balance query failed for ledger stellar: boom", queryErr.Error())

	sampleErr := &SampleFailure{Err: cause}
	assert.ErrorIs(t, sampleErr, cause)
	assert.Equal(t, "price sample failed: boom", sampleErr.Error())
}
