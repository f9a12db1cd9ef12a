package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	chaindomain "github.com/smallbiznis/relaypay/internal/chain/domain"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
	"github.com/smallbiznis/relaypay/pkg/db"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&db.Nonce{},
		&tokendomain.Balance{},
		&tokendomain.Allowance{},
		&tokendomain.SupportedToken{},
		&chaindomain.ChainSelector{},
		&bridgedomain.AllowedDestination{},
		&bridgedomain.Transfer{},
		&bridgedomain.OutboundMessage{},
		&productdomain.Product{},
		&plandomain.Plan{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.ProductSubscription{},
		&eventsdomain.Record{},
	}
}

// Run applies the versioned SQL migrations on postgres and falls back to
// AutoMigrate for the other dialects.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}
