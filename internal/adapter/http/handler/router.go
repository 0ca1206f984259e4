package handler

import (
	"fixed-deposit-bank/internal/adapter/http/middleware"
	redisStore "fixed-deposit-bank/internal/adapter/storage/redis"
	"fixed-deposit-bank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	AccountSvc     ports.AccountService
	DepositSvc     ports.DepositService
	PolicySvc      ports.PolicyService
	MembershipSvc  ports.MembershipService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	policyHandler := NewPolicyHandler(deps.PolicySvc)
	v1.GET("/policy", rl("accounts"), policyHandler.GetPolicy)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	accountHandler := NewAccountHandler(deps.AccountSvc)
	depositHandler := NewDepositHandler(deps.DepositSvc)
	membershipHandler := NewMembershipHandler(deps.MembershipSvc)

	accounts := v1.Group("/accounts", jwtAuth)
	{
		accounts.GET("/balance", rl("accounts"), accountHandler.GetBalance)
		accounts.POST("/topup", rl("accounts"), accountHandler.Topup)
	}

	deposits := v1.Group("/deposits", jwtAuth)
	{
		deposits.POST("", rl("deposits"), depositHandler.Open)
		deposits.POST("/close", rl("deposits"), depositHandler.Close)
		deposits.GET("", rl("deposits"), depositHandler.List)
	}

	membership := v1.Group("/membership", jwtAuth)
	{
		membership.POST("/lock", rl("membership"), membershipHandler.Lock)
		membership.POST("/unlock", rl("membership"), membershipHandler.Unlock)
		membership.GET("", rl("membership"), membershipHandler.Get)
	}

	treasury := v1.Group("/policy/treasury", jwtAuth)
	{
		treasury.POST("/fund", rl("accounts"), policyHandler.FundTreasury)
	}

	// --- Admin routes (JWT-authenticated; privilege enforced in the service) ---
	admin := v1.Group("/admin/policy", jwtAuth)
	{
		admin.PUT("/interest-rate", rl("admin"), policyHandler.SetInterestRate)
		admin.PUT("/penalty-rate", rl("admin"), policyHandler.SetPenaltyRate)
		admin.PUT("/treasury", rl("admin"), policyHandler.SetTreasury)
	}

	return r
}
