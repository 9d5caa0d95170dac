//go:build wireinject
// +build wireinject

package payments

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/salonos/payments/internal/monitoring"
	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/internal/payments/handler"
	"github.com/salonos/payments/internal/payments/repository"
	"github.com/salonos/payments/internal/payments/usecase/command"
	"github.com/salonos/payments/internal/payments/usecase/query"
	"github.com/salonos/payments/internal/plan"
	"github.com/salonos/payments/internal/stripeconnect"
	tenantdomain "github.com/salonos/payments/internal/tenant/domain"
	tenantrepo "github.com/salonos/payments/internal/tenant/repository"
	"github.com/salonos/payments/kafka"
)

// ProvidePaymentRepository provides the traced payment repository
func ProvidePaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return repository.NewGormPaymentRepositoryWithTracing(db)
}

// ProvideTenantRepository provides the tenant/subscription repository
func ProvideTenantRepository(db *gorm.DB) tenantdomain.Repository {
	return tenantrepo.NewGormTenantRepository(db)
}

// ProvideSettingsRepository narrows the payment repository to settings access
func ProvideSettingsRepository(repo domain.PaymentRepository) domain.SettingsRepository {
	return repo
}

// Command handler providers
func ProvideRecordPaymentHandler(repo domain.PaymentRepository, log *paymentlog.Log) *command.RecordPaymentHandler {
	return command.NewRecordPaymentHandler(repo, log)
}

func ProvideSplitPaymentHandler(repo domain.PaymentRepository, log *paymentlog.Log) *command.SplitPaymentHandler {
	return command.NewSplitPaymentHandler(repo, log)
}

func ProvideProcessRefundHandler(repo domain.PaymentRepository, adapter *stripeconnect.Adapter, guard *repository.TenantGuard, log *paymentlog.Log) *command.ProcessRefundHandler {
	return command.NewProcessRefundHandler(repo, adapter, guard, log)
}

func ProvideUpdateSettingsHandler(repo domain.PaymentRepository) *command.UpdateSettingsHandler {
	return command.NewUpdateSettingsHandler(repo)
}

// Query handler providers
func ProvideGetPaymentHandler(repo domain.PaymentRepository) *query.GetPaymentHandler {
	return query.NewGetPaymentHandler(repo)
}

func ProvideListPaymentsHandler(repo domain.PaymentRepository) *query.ListPaymentsHandler {
	return query.NewListPaymentsHandler(repo)
}

func ProvideListRefundsHandler(repo domain.PaymentRepository) *query.ListRefundsHandler {
	return query.NewListRefundsHandler(repo)
}

func ProvideGetSettingsHandler(repo domain.PaymentRepository) *query.GetSettingsHandler {
	return query.NewGetSettingsHandler(repo)
}

// Supporting component providers
func ProvideStripeAdapter(cfg stripeconnect.Config, client stripeconnect.Client, settings domain.SettingsRepository, log *paymentlog.Log) *stripeconnect.Adapter {
	return stripeconnect.NewAdapter(cfg, client, settings, log)
}

func ProvideTenantGuard(log *paymentlog.Log) *repository.TenantGuard {
	return repository.NewTenantGuard(log)
}

func ProvideLimiter(repo tenantdomain.Repository, log *paymentlog.Log) *plan.Limiter {
	return plan.NewLimiter(repo, log)
}

func ProvideAnalyzer(log *paymentlog.Log) *monitoring.Analyzer {
	return monitoring.NewAnalyzer(log)
}

func ProvideDashboard(analyzer *monitoring.Analyzer, log *paymentlog.Log, redisClient *redis.Client) *monitoring.Dashboard {
	return monitoring.NewDashboard(analyzer, log, redisClient)
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvidePaymentRepository,
	ProvideTenantRepository,
	ProvideSettingsRepository,
)

var CommandHandlerSet = wire.NewSet(
	ProvideRecordPaymentHandler,
	ProvideSplitPaymentHandler,
	ProvideProcessRefundHandler,
	ProvideUpdateSettingsHandler,
)

var QueryHandlerSet = wire.NewSet(
	ProvideGetPaymentHandler,
	ProvideListPaymentsHandler,
	ProvideListRefundsHandler,
	ProvideGetSettingsHandler,
)

var SupportSet = wire.NewSet(
	ProvideStripeAdapter,
	ProvideTenantGuard,
	ProvideLimiter,
	ProvideAnalyzer,
	ProvideDashboard,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	CommandHandlerSet,
	QueryHandlerSet,
	SupportSet,
)

// InitializeHandler wires the payment handler with all dependencies
func InitializeHandler(
	db *gorm.DB,
	stripeCfg stripeconnect.Config,
	stripeClient stripeconnect.Client,
	log *paymentlog.Log,
	redisClient *redis.Client,
	publisher *kafka.Publisher,
) (*handler.PaymentHandler, error) {
	wire.Build(
		AllHandlersSet,
		handler.NewPaymentHandler,
	)
	return nil, nil
}
