package registry

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	accessservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/service"
	accessstore "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/store"
	emergencyservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/emergency/service"
	emergencystore "github.com/Elelei/Blockchain-Land-Registry-System/internal/emergency/store"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/ledger"
	escrowservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/service"
	escrowstore "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/store"
	propertyservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/service"
	propertystore "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/store"
	txservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/service"
	txstore "github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/store"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
)

// Stores is one storage backend for every component. All stores must join
// units opened by Runner.
type Stores struct {
	Access       accessservice.Store
	Emergency    emergencyservice.Store
	Properties   propertyservice.Store
	Transactions txservice.Store
	Holdings     escrowservice.Store
	Balances     ledger.Store
	Runner       tx.Runner
}

// MemoryStores builds process-local stores rolled back by a MemoryRunner.
func MemoryStores() Stores {
	access := accessstore.NewInMemory()
	emergency := emergencystore.NewInMemory()
	properties := propertystore.NewInMemory()
	transactions := txstore.NewInMemory()
	holdings := escrowstore.NewInMemory()
	balances := escrowstore.NewInMemoryBalances()
	return Stores{
		Access:       access,
		Emergency:    emergency,
		Properties:   properties,
		Transactions: transactions,
		Holdings:     holdings,
		Balances:     balances,
		Runner:       tx.NewMemoryRunner(access, emergency, properties, transactions, holdings, balances),
	}
}

type migrator interface {
	AutoMigrate() error
}

// GormStores builds SQL stores on db and migrates their tables.
func GormStores(db *gorm.DB) (Stores, error) {
	access := accessstore.NewGorm(db)
	emergency := emergencystore.NewGorm(db)
	properties := propertystore.NewGorm(db)
	transactions := txstore.NewGorm(db)
	holdings := escrowstore.NewGorm(db)
	balances := escrowstore.NewGormBalances(db)
	for _, m := range []migrator{access, emergency, properties, transactions, holdings, balances} {
		if err := m.AutoMigrate(); err != nil {
			return Stores{}, fmt.Errorf("migrate registry stores: %w", err)
		}
	}
	return Stores{
		Access:       access,
		Emergency:    emergency,
		Properties:   properties,
		Transactions: transactions,
		Holdings:     holdings,
		Balances:     balances,
		Runner:       tx.NewGormRunner(db),
	}, nil
}

// Assembly is a wired registry plus the services it composes, for callers
// that need direct access (bootstrap, tests).
type Assembly struct {
	Registry *Registry
	Access   *accessservice.Service
	Ledger   *ledger.Ledger
}

// Assemble wires the services over stores. A nil payments uses the ledger
// as the payment rail.
func Assemble(stores Stores, payments escrowservice.Payments, logger *slog.Logger, opts ...Option) *Assembly {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	book := ledger.New(stores.Balances, ledger.WithLogger(logger))
	if payments == nil {
		payments = book
	}
	latch := &payoutLatch{}
	payments = latch.guard(payments)

	access := accessservice.New(stores.Access, accessservice.WithLogger(logger))
	emergency := emergencyservice.New(stores.Emergency, access, emergencyservice.WithLogger(logger))
	properties := propertyservice.New(stores.Properties, access, propertyservice.WithLogger(logger))
	vault := escrowservice.New(stores.Holdings, payments, escrowservice.WithLogger(logger))
	workflow := txservice.New(stores.Transactions, properties, access, vault, stores.Runner, txservice.WithLogger(logger))

	reg := New(Components{
		Access:     access,
		Emergency:  emergency,
		Properties: properties,
		Workflow:   workflow,
		Vault:      vault,
		Ledger:     book,
		Runner:     stores.Runner,
	}, append([]Option{WithLogger(logger), withPayoutLatch(latch)}, opts...)...)

	return &Assembly{Registry: reg, Access: access, Ledger: book}
}
