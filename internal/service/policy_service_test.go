package service

import (
	"context"
	"testing"

	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type policyTestDeps struct {
	svc         *PolicyServiceImpl
	accountRepo *mocks.MockAccountRepository
	policyRepo  *mocks.MockPolicyRepository
	eventRepo   *mocks.MockEventRepository
	transactor  *mocks.MockDBTransactor
	authorizer  *mocks.MockAuthorizer
	clock       *mocks.MockBlockClock
	ctrl        *gomock.Controller
}

func setupPolicyService(t *testing.T) *policyTestDeps {
	ctrl := gomock.NewController(t)
	d := &policyTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		policyRepo:  mocks.NewMockPolicyRepository(ctrl),
		eventRepo:   mocks.NewMockEventRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		authorizer:  mocks.NewMockAuthorizer(ctrl),
		clock:       mocks.NewMockBlockClock(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewPolicyService(
		d.accountRepo, d.policyRepo, d.eventRepo,
		d.transactor, d.authorizer, d.clock, zerolog.Nop(),
	)
	return d
}

func adminCaller() ports.Caller {
	return ports.Caller{AccountID: uuid.New(), Username: "root"}
}

// ==================== SetInterestRate Tests ====================

func TestPolicyService_SetInterestRate_Success(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()
	tx := &mockTx{}

	d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.policyRepo.EXPECT().SetInterestRate(ctx, tx, int64(500)).Return(nil)
	d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	err := d.svc.SetInterestRate(ctx, caller, 500)
	require.NoError(t, err)
}

func TestPolicyService_SetInterestRate_Unauthorized(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := ports.Caller{AccountID: uuid.New(), Username: "mallory"}

	d.authorizer.EXPECT().IsPrivileged(ctx, "mallory").Return(false, nil)

	err := d.svc.SetInterestRate(ctx, caller, 500)
	assertAppError(t, err, "ADM_001")
}

func TestPolicyService_SetInterestRate_Negative(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()

	d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)

	err := d.svc.SetInterestRate(ctx, caller, -1)
	assertAppError(t, err, "ADM_002")
}

// A zero interest rate is a valid setting, not an error.
func TestPolicyService_SetInterestRate_ZeroAllowed(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()
	tx := &mockTx{}

	d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.policyRepo.EXPECT().SetInterestRate(ctx, tx, int64(0)).Return(nil)
	d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	err := d.svc.SetInterestRate(ctx, caller, 0)
	require.NoError(t, err)
}

// ==================== SetPenaltyRate Tests ====================

func TestPolicyService_SetPenaltyRate_Success(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()
	tx := &mockTx{}

	d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.policyRepo.EXPECT().SetPenaltyRate(ctx, tx, int64(75)).Return(nil)
	d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	err := d.svc.SetPenaltyRate(ctx, caller, 75)
	require.NoError(t, err)
}

func TestPolicyService_SetPenaltyRate_OutsideBand(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()

	for _, bps := range []int64{0, 49, 101, 10_000} {
		d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)
		err := d.svc.SetPenaltyRate(ctx, caller, bps)
		assertAppError(t, err, "ADM_002")
	}
}

func TestPolicyService_SetPenaltyRate_BandEdges(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()
	tx := &mockTx{}

	for _, bps := range []int64{50, 100} {
		d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)
		d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
		d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
		d.policyRepo.EXPECT().SetPenaltyRate(ctx, tx, bps).Return(nil)
		d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

		err := d.svc.SetPenaltyRate(ctx, caller, bps)
		require.NoError(t, err)
	}
}

// ==================== SetTreasury Tests ====================

func TestPolicyService_SetTreasury_Success(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()
	treasuryID := uuid.New()
	tx := &mockTx{}

	d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)
	d.accountRepo.EXPECT().GetByID(ctx, treasuryID).Return(&domain.Account{ID: treasuryID}, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.policyRepo.EXPECT().SetTreasury(ctx, tx, treasuryID).Return(nil)
	d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	err := d.svc.SetTreasury(ctx, caller, treasuryID)
	require.NoError(t, err)
}

func TestPolicyService_SetTreasury_AccountMissing(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := adminCaller()
	treasuryID := uuid.New()

	d.authorizer.EXPECT().IsPrivileged(ctx, "root").Return(true, nil)
	d.accountRepo.EXPECT().GetByID(ctx, treasuryID).Return(nil, nil)

	err := d.svc.SetTreasury(ctx, caller, treasuryID)
	assertAppError(t, err, "BAL_003")
}

func TestPolicyService_SetTreasury_Unauthorized(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := ports.Caller{AccountID: uuid.New(), Username: "mallory"}

	d.authorizer.EXPECT().IsPrivileged(ctx, "mallory").Return(false, nil)

	err := d.svc.SetTreasury(ctx, caller, uuid.New())
	assertAppError(t, err, "ADM_001")
}

// ==================== FundTreasury Tests ====================

func TestPolicyService_FundTreasury_Success(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := ports.Caller{AccountID: uuid.New(), Username: "alice"}
	treasuryID := uuid.New()
	tx := &mockTx{}

	d.policyRepo.EXPECT().Get(ctx).Return(&domain.BankPolicy{TreasuryID: &treasuryID}, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, caller.AccountID).Return(&domain.Account{
		ID:          caller.AccountID,
		FreeBalance: 1_000,
	}, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, treasuryID).Return(&domain.Account{
		ID:          treasuryID,
		FreeBalance: 500,
	}, nil)
	d.accountRepo.EXPECT().UpdateBalances(ctx, tx, caller.AccountID, int64(700), int64(0)).Return(nil)
	d.accountRepo.EXPECT().UpdateBalances(ctx, tx, treasuryID, int64(800), int64(0)).Return(nil)
	d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	err := d.svc.FundTreasury(ctx, caller, 300)
	require.NoError(t, err)
}

// The treasury account's own holder funding the treasury is a self-transfer:
// no balance may move, and in particular nothing may be minted by writing the
// same row twice. The mocks reject any UpdateBalances call.
func TestPolicyService_FundTreasury_SelfFundingLeavesBalancesUnchanged(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	treasuryID := uuid.New()
	caller := ports.Caller{AccountID: treasuryID, Username: "vault"}
	tx := &mockTx{}

	d.policyRepo.EXPECT().Get(ctx).Return(&domain.BankPolicy{TreasuryID: &treasuryID}, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, treasuryID).Return(&domain.Account{
		ID:          treasuryID,
		FreeBalance: 1_000,
	}, nil)
	// The funding is still journaled even though balances stay put.
	d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	err := d.svc.FundTreasury(ctx, caller, 500)
	require.NoError(t, err)
}

// Self-funding still requires a covering balance.
func TestPolicyService_FundTreasury_SelfFundingInsufficient(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	treasuryID := uuid.New()
	caller := ports.Caller{AccountID: treasuryID, Username: "vault"}
	tx := &mockTx{}

	d.policyRepo.EXPECT().Get(ctx).Return(&domain.BankPolicy{TreasuryID: &treasuryID}, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, treasuryID).Return(&domain.Account{
		ID:          treasuryID,
		FreeBalance: 100,
	}, nil)

	err := d.svc.FundTreasury(ctx, caller, 300)
	assertAppError(t, err, "BAL_001")
}

func TestPolicyService_FundTreasury_NotConfigured(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := ports.Caller{AccountID: uuid.New(), Username: "alice"}

	d.policyRepo.EXPECT().Get(ctx).Return(&domain.BankPolicy{}, nil)

	err := d.svc.FundTreasury(ctx, caller, 300)
	assertAppError(t, err, "TRS_001")
}

func TestPolicyService_FundTreasury_InsufficientBalance(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	caller := ports.Caller{AccountID: uuid.New(), Username: "alice"}
	treasuryID := uuid.New()
	tx := &mockTx{}

	d.policyRepo.EXPECT().Get(ctx).Return(&domain.BankPolicy{TreasuryID: &treasuryID}, nil)
	d.clock.EXPECT().Current(ctx).Return(int64(42), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, caller.AccountID).Return(&domain.Account{
		ID:          caller.AccountID,
		FreeBalance: 100,
	}, nil)

	err := d.svc.FundTreasury(ctx, caller, 300)
	assertAppError(t, err, "BAL_001")
}

func TestPolicyService_FundTreasury_InvalidAmount(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	err := d.svc.FundTreasury(context.Background(), adminCaller(), 0)
	assertAppError(t, err, "BAL_002")
}

// ==================== GetPolicy Tests ====================

func TestPolicyService_GetPolicy(t *testing.T) {
	d := setupPolicyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.policyRepo.EXPECT().Get(ctx).Return(&domain.BankPolicy{
		InterestRateBps: 500,
		PenaltyRateBps:  75,
	}, nil)

	policy, err := d.svc.GetPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), policy.InterestRateBps)
	assert.Equal(t, int64(75), policy.PenaltyRateBps)
}
