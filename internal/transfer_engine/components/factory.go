package components

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/outbox"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/platform/persistence"
	"github.com/transfer-verification-engine/internal/platform/ratelimit"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

const ledgerReferencePrefix = "LED"

// Repositories are the stores the engine runs on. AuditLog may be nil when
// MongoDB is not configured.
type Repositories struct {
	Accounts       account.Repository
	Transfers      transfer.Repository
	Ledger         ledger.Repository
	Outbox         outbox.Repository
	PINs           verification.PINRepository
	KnowledgeCodes verification.KnowledgeCodeRepository
	OTPs           verification.OTPRepository
	AuditLog       transfer.AuditLog
}

// Engine bundles the services exposed to the gateway and the admin CLI
type Engine struct {
	Transfers service.TransferService
	Accounts  service.AccountService
	Factors   *FactorManager
}

// NewLimiter returns a Redis-backed limiter when a client is given, otherwise
// an in-process one
func NewLimiter(client redis.Cmdable, cfg config.RedisConfig, logger *slog.Logger) ratelimit.Limiter {
	if client == nil {
		logger.Warn("Redis disabled, attempt counters are kept in process memory")
		return ratelimit.NewMemoryLimiter()
	}
	return ratelimit.NewRedisLimiter(logger.With("component", "rate_limiter"), client, cfg.KeyPrefix)
}

// NewGateValidators guards every gate with the attempt limiter. PIN uses its
// own cool-down; knowledge codes and OTP share the general one.
func NewGateValidators(repos Repositories, limiter ratelimit.Limiter, cfg config.VerificationConfig, logger *slog.Logger) GateValidators {
	pin := NewPINValidator(repos.PINs, logger)
	codes := NewKnowledgeCodeValidator(repos.KnowledgeCodes)
	otp := NewOTPValidator(repos.OTPs, cfg.OTPPurpose, cfg.OTPMaxAttempts, logger)

	guard := func(inner service.GateValidator, cooldown time.Duration) service.GateValidator {
		return NewGuardedValidator(inner, limiter, cfg.MaxAttempts, cooldown, logger)
	}

	return GateValidators{
		shared.GatePIN: guard(pin, cfg.PINCooldown),
		shared.GateIMF: guard(codes, cfg.Cooldown),
		shared.GateTax: guard(codes, cfg.Cooldown),
		shared.GateCOT: guard(codes, cfg.Cooldown),
		shared.GateOTP: guard(otp, cfg.Cooldown),
	}
}

// CreateEngine wires the transfer state machine with all its dependencies
func CreateEngine(
	db persistence.TxRunner,
	repos Repositories,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
	cfg *config.Config,
) *Engine {
	events := NewEventRecorder(repos.Outbox, logger.With("component", "event_recorder"))
	fees := NewFeeCalculator(cfg.Fees)
	resolver := NewGateResolver(cfg.Gates)

	settlement := NewSettlementLedger(
		db,
		repos.Transfers,
		repos.Accounts,
		repos.Ledger,
		events,
		fees,
		resolver,
		NewReferenceGenerator(ledgerReferencePrefix),
		logger.With("component", "settlement"),
	)

	transfers := service.NewTransferService(service.Dependencies{
		DB:                   db,
		Transfers:            repos.Transfers,
		Accounts:             repos.Accounts,
		AuditLog:             repos.AuditLog,
		Validator:            NewGateValidators(repos, limiter, cfg.Verification, logger.With("component", "verification")),
		Resolver:             resolver,
		Fees:                 fees,
		Settlement:           settlement,
		Events:               events,
		References:           NewReferenceGenerator(cfg.Reference.Prefix),
		OTPIssuer:            NewOTPIssuer(db, repos.OTPs, events, limiter, cfg.Verification, logger.With("component", "otp_issuer")),
		MaxReferenceAttempts: cfg.Reference.MaxAttempts,
		Logger:               logger.With("component", "transfer_service"),
	})

	logger.Info("Transfer engine created",
		"reference_prefix", cfg.Reference.Prefix,
		"max_attempts", cfg.Verification.MaxAttempts,
	)

	return &Engine{
		Transfers: transfers,
		Accounts:  service.NewAccountService(repos.Accounts, repos.Ledger),
		Factors:   NewFactorManager(db, repos.PINs, repos.KnowledgeCodes, logger.With("component", "factor_manager")),
	}
}
