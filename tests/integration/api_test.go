package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fixed-deposit-bank/config"
	"fixed-deposit-bank/internal/adapter/authz"
	httpHandler "fixed-deposit-bank/internal/adapter/http/handler"
	redisStorage "fixed-deposit-bank/internal/adapter/storage/redis"
	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/service"
	"fixed-deposit-bank/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds a full application stack on in-memory repos with a manually
// advanced block clock. This exercises the real HTTP layer, middleware,
// handlers, and services end-to-end.

type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	clock    *manualClock
	events   *inMemoryEventRepo
	accounts *inMemoryAccountRepo
	tokens   *service.JWTTokenService
}

func testAppBankConfig() config.BankConfig {
	return config.BankConfig{
		MinDepositAmount:  50,
		MaxDepositAmount:  200_000,
		MinMaturityBlocks: 10,
		MaxMaturityBlocks: 1_000_000,
		MinLockAmount:     20,
		MaxLockAmount:     10_000,
		AllowMultipleFDs:  true,
		PenaltyRoute:      config.PenaltyRouteBurn,
		AdminUsernames:    []string{"root"},
	}
}

func newTestApp(t *testing.T, withRateLimit bool) *testApp {
	t.Helper()
	return newTestAppWithConfig(t, withRateLimit, testAppBankConfig())
}

func newTestAppWithConfig(t *testing.T, withRateLimit bool, cfg config.BankConfig) *testApp {
	t.Helper()

	// Start miniredis
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	var rateLimitStore *redisStorage.RateLimitStore
	if withRateLimit {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	// Core services with real implementations
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	// In-memory repos
	accountRepo := newInMemoryAccountRepo()
	depositRepo := newInMemoryDepositRepo()
	lockRepo := newInMemoryLockRepo()
	policyRepo := newInMemoryPolicyRepo()
	eventRepo := newInMemoryEventRepo()
	transactor := newInMemoryTransactor()

	blockClock := &manualClock{}
	authorizer := authz.NewStaticAuthorizer(cfg.AdminUsernames)

	// Business services
	log := logger.New("debug", false)
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc, authorizer, log)
	accountSvc := service.NewAccountService(accountRepo, eventRepo, transactor, blockClock, log)
	depositSvc := service.NewDepositService(accountRepo, depositRepo, policyRepo, eventRepo, transactor, blockClock, cfg, log)
	policySvc := service.NewPolicyService(accountRepo, policyRepo, eventRepo, transactor, authorizer, blockClock, log)
	membershipSvc := service.NewMembershipService(accountRepo, lockRepo, eventRepo, transactor, blockClock, cfg, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		AccountSvc:     accountSvc,
		DepositSvc:     depositSvc,
		PolicySvc:      policySvc,
		MembershipSvc:  membershipSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:   server,
		redis:    mr,
		clock:    blockClock,
		events:   eventRepo,
		accounts: accountRepo,
		tokens:   tokenSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// --- HTTP helpers ---

func (a *testApp) post(t *testing.T, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	return a.do(t, http.MethodPost, path, token, body)
}

func (a *testApp) put(t *testing.T, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	return a.do(t, http.MethodPut, path, token, body)
}

func (a *testApp) get(t *testing.T, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	return a.do(t, http.MethodGet, path, token, nil)
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	data, _ := envelope["data"].(map[string]interface{})
	return resp, data
}

// register creates an account and returns its id and a login token.
func (a *testApp) register(t *testing.T, username, password string) (string, string) {
	t.Helper()

	resp, data := a.post(t, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	accountID, _ := data["account_id"].(string)
	require.NotEmpty(t, accountID)

	resp, data = a.post(t, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	return accountID, token
}

// seedAdmin provisions an admin account directly in storage, the way an
// operator would, since reserved usernames cannot pass public registration.
func (a *testApp) seedAdmin(t *testing.T, username string) (string, string) {
	t.Helper()

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uuid.New(),
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, a.accounts.Create(context.Background(), account))

	token, _, err := a.tokens.Generate(account.ID, account.Username)
	require.NoError(t, err)
	return account.ID.String(), token
}

func (a *testApp) freeBalance(t *testing.T, token string) int64 {
	t.Helper()
	resp, data := a.get(t, "/api/v1/accounts/balance", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return int64(data["free"].(float64))
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	accountID, token := app.register(t, "alice", "StrongPass123!")
	assert.NotEmpty(t, accountID)
	assert.NotEmpty(t, token)

	// Fresh accounts start with a zero balance.
	assert.Equal(t, int64(0), app.freeBalance(t, token))
}

func TestIntegration_DuplicateUsername(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	app.register(t, "alice", "StrongPass123!")

	resp, _ := app.post(t, "/api/v1/auth/register", "", map[string]string{
		"username": "alice",
		"password": "OtherPass456!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIntegration_ReservedUsernameRegistration(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	// "root" is in the admin set; registering it would hand out admin
	// privileges to whoever got there first.
	resp, _ := app.post(t, "/api/v1/auth/register", "", map[string]string{
		"username": "root",
		"password": "TotallyLegit123!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Seeded admins work as usual.
	_, rootToken := app.seedAdmin(t, "root")
	resp, _ = app.put(t, "/api/v1/admin/policy/interest-rate", rootToken, map[string]int64{"bps": 500})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_LoginWrongCredentials(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	app.register(t, "alice", "StrongPass123!")

	resp, _ := app.post(t, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_JWT_Unauthorized(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	resp, _ := app.get(t, "/api/v1/accounts/balance", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = app.get(t, "/api/v1/accounts/balance", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestIntegration_MatureDepositLifecycle walks the whole fixed-deposit flow:
// policy setup, treasury funding, opening at block 10, closing at block 200
// with 500 bps simple interest over a 100-block term.
func TestIntegration_MatureDepositLifecycle(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, rootToken := app.seedAdmin(t, "root")
	treasuryID, treasuryToken := app.register(t, "vault", "VaultPass123!")
	_, aliceToken := app.register(t, "alice", "AlicePass123!")

	// Admin wires the policy: 500 bps interest, treasury account.
	resp, _ := app.put(t, "/api/v1/admin/policy/interest-rate", rootToken, map[string]int64{"bps": 500})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.put(t, "/api/v1/admin/policy/treasury", rootToken, map[string]string{"account_id": treasuryID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The treasury account funds itself with 10,000.
	resp, _ = app.post(t, "/api/v1/accounts/topup", treasuryToken, map[string]int64{"amount": 10_000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = app.post(t, "/api/v1/policy/treasury/fund", treasuryToken, map[string]int64{"amount": 10_000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Alice funds her account and opens a 1000 deposit for 100 blocks at
	// block height 10.
	resp, _ = app.post(t, "/api/v1/accounts/topup", aliceToken, map[string]int64{"amount": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	app.clock.set(10)
	resp, data := app.post(t, "/api/v1/deposits", aliceToken, map[string]int64{
		"amount":          1000,
		"maturity_blocks": 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	depositID := data["id"].(string)
	assert.Equal(t, float64(10), data["opened_at_block"])
	assert.Equal(t, float64(110), data["matures_at_block"])

	// Principal moved from free to reserved.
	assert.Equal(t, int64(4000), app.freeBalance(t, aliceToken))

	// Close well past maturity: interest = 1000 * 500 / 10000 = 50.
	app.clock.set(200)
	resp, data = app.post(t, "/api/v1/deposits/close", aliceToken, map[string]string{"deposit_id": depositID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data["mature"])
	assert.Equal(t, float64(50), data["interest"])
	assert.Equal(t, float64(0), data["penalty"])
	assert.Equal(t, float64(1050), data["payout"])

	// Alice's free balance is back up with interest; the deposit is gone.
	assert.Equal(t, int64(5050), app.freeBalance(t, aliceToken))

	resp, _ = app.post(t, "/api/v1/deposits/close", aliceToken, map[string]string{"deposit_id": depositID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Every state change left a journal row.
	assert.Equal(t, []domain.EventKind{
		domain.EventRateChanged,
		domain.EventTreasuryChanged,
		domain.EventTopup,
		domain.EventTreasuryFunded,
		domain.EventTopup,
		domain.EventDepositOpened,
		domain.EventDepositMatured,
	}, app.events.kinds())
}

// TestIntegration_TreasurySelfFund has the treasury account's holder fund the
// treasury. Debit and credit land on the same row, so the balance must not
// move at all, and in particular must not grow by the funded amount.
func TestIntegration_TreasurySelfFund(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, rootToken := app.seedAdmin(t, "root")
	treasuryID, treasuryToken := app.register(t, "vault", "VaultPass123!")

	resp, _ := app.put(t, "/api/v1/admin/policy/treasury", rootToken, map[string]string{"account_id": treasuryID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/accounts/topup", treasuryToken, map[string]int64{"amount": 1000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/policy/treasury/fund", treasuryToken, map[string]int64{"amount": 500})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1000), app.freeBalance(t, treasuryToken))

	// Funding more than the balance still fails, self-transfer or not.
	resp, _ = app.post(t, "/api/v1/policy/treasury/fund", treasuryToken, map[string]int64{"amount": 5000})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

// TestIntegration_MatureCloseByTreasuryOwner closes a mature deposit owned by
// the treasury account itself. Interest self-cancels: the payout reports it,
// but the account's total holdings stay flat aside from the released
// principal.
func TestIntegration_MatureCloseByTreasuryOwner(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, rootToken := app.seedAdmin(t, "root")
	treasuryID, treasuryToken := app.register(t, "vault", "VaultPass123!")

	resp, _ := app.put(t, "/api/v1/admin/policy/interest-rate", rootToken, map[string]int64{"bps": 500})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = app.put(t, "/api/v1/admin/policy/treasury", rootToken, map[string]string{"account_id": treasuryID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/accounts/topup", treasuryToken, map[string]int64{"amount": 10_000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	app.clock.set(10)
	resp, _ = app.post(t, "/api/v1/deposits", treasuryToken, map[string]int64{
		"amount":          1000,
		"maturity_blocks": 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(9000), app.freeBalance(t, treasuryToken))

	app.clock.set(200)
	resp, data := app.post(t, "/api/v1/deposits/close", treasuryToken, map[string]interface{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data["mature"])
	assert.Equal(t, float64(50), data["interest"])
	assert.Equal(t, float64(1050), data["payout"])

	// Principal released, interest paid to itself: 10,000, not 10,050.
	assert.Equal(t, int64(10_000), app.freeBalance(t, treasuryToken))
}

// TestIntegration_PrematureClose closes before maturity: the penalty comes
// off the principal and no interest is paid.
func TestIntegration_PrematureClose(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, rootToken := app.seedAdmin(t, "root")
	_, aliceToken := app.register(t, "alice", "AlicePass123!")

	resp, _ := app.put(t, "/api/v1/admin/policy/penalty-rate", rootToken, map[string]int64{"bps": 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/accounts/topup", aliceToken, map[string]int64{"amount": 2000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	app.clock.set(10)
	resp, _ = app.post(t, "/api/v1/deposits", aliceToken, map[string]int64{
		"amount":          1000,
		"maturity_blocks": 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Close at block 50, 60 blocks early: penalty = 1000 * 100 / 10000 = 10.
	app.clock.set(50)
	resp, data := app.post(t, "/api/v1/deposits/close", aliceToken, map[string]interface{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, data["mature"])
	assert.Equal(t, float64(0), data["interest"])
	assert.Equal(t, float64(10), data["penalty"])
	assert.Equal(t, float64(990), data["payout"])

	assert.Equal(t, int64(1990), app.freeBalance(t, aliceToken))
}

func TestIntegration_MembershipLockLifecycle(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, token := app.register(t, "alice", "AlicePass123!")

	resp, _ := app.post(t, "/api/v1/accounts/topup", token, map[string]int64{"amount": 1000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	app.clock.set(30)
	resp, data := app.post(t, "/api/v1/membership/lock", token, map[string]int64{"amount": 100})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(100), data["amount"])
	assert.Equal(t, float64(30), data["locked_at_block"])
	assert.Equal(t, int64(900), app.freeBalance(t, token))

	// A second lock is rejected while one is outstanding.
	resp, _ = app.post(t, "/api/v1/membership/lock", token, map[string]int64{"amount": 50})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = app.get(t, "/api/v1/membership", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/membership/unlock", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1000), app.freeBalance(t, token))

	resp, _ = app.get(t, "/api/v1/membership", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_AdminEndpointsRejectUnprivileged(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, token := app.register(t, "mallory", "MalloryPass123!")

	resp, _ := app.put(t, "/api/v1/admin/policy/interest-rate", token, map[string]int64{"bps": 9999})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = app.put(t, "/api/v1/admin/policy/penalty-rate", token, map[string]int64{"bps": 75})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestIntegration_CloseWithoutTreasuryConfigured(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, rootToken := app.seedAdmin(t, "root")
	_, aliceToken := app.register(t, "alice", "AlicePass123!")

	// Non-zero interest but no treasury: mature close must fail.
	resp, _ := app.put(t, "/api/v1/admin/policy/interest-rate", rootToken, map[string]int64{"bps": 500})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/accounts/topup", aliceToken, map[string]int64{"amount": 2000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	app.clock.set(10)
	resp, _ = app.post(t, "/api/v1/deposits", aliceToken, map[string]int64{
		"amount":          1000,
		"maturity_blocks": 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	app.clock.set(200)
	resp, _ = app.post(t, "/api/v1/deposits/close", aliceToken, map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The deposit is untouched. Configuring and funding the treasury
	// unblocks the close.
	treasuryID, treasuryToken := app.register(t, "vault", "VaultPass123!")
	resp, _ = app.put(t, "/api/v1/admin/policy/treasury", rootToken, map[string]string{"account_id": treasuryID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = app.post(t, "/api/v1/accounts/topup", treasuryToken, map[string]int64{"amount": 1000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = app.post(t, "/api/v1/policy/treasury/fund", treasuryToken, map[string]int64{"amount": 1000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := app.post(t, "/api/v1/deposits/close", aliceToken, map[string]interface{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1050), data["payout"])
}

func TestIntegration_RateLimit(t *testing.T) {
	app := newTestApp(t, true)
	defer app.close()

	// auth_login allows 10 requests per minute per client.
	body := map[string]string{"username": "ghost", "password": "whatever1"}
	var last int
	for i := 0; i < 11; i++ {
		resp, _ := app.post(t, "/api/v1/auth/login", "", body)
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
