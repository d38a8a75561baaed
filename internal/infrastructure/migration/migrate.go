// Package migration applies the fleetcost schema with golang-migrate. The
// schema ships embedded in the binary; a directory on disk can replace it
// during development.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/fleetcost/backend/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Source selects where migration files are read from
type Source struct {
	// Dir reads files from disk when set; otherwise the embedded schema is used
	Dir string
}

// EmbeddedSource uses the schema compiled into the binary
func EmbeddedSource() Source {
	return Source{}
}

// DirSource reads migrations from dir
func DirSource(dir string) Source {
	return Source{Dir: dir}
}

func (s Source) String() string {
	if s.Dir == "" {
		return "embedded"
	}
	return "file://" + s.Dir
}

// Status is the state of the schema
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator runs schema migrations
type Migrator struct {
	migrate *migrate.Migrate
	source  Source
	logger  *zap.Logger
}

// New creates a Migrator on an open postgres connection
func New(db *sql.DB, from Source, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	var m *migrate.Migrate
	if from.Dir != "" {
		m, err = migrate.NewWithDatabaseInstance(from.String(), "postgres", driver)
	} else {
		var drv source.Driver
		drv, err = embeddedDriver(migrations.FS)
		if err == nil {
			m, err = migrate.NewWithInstance("iofs", drv, "postgres", driver)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance from %s: %w", from, err)
	}
	return newMigrator(m, from, logger), nil
}

// NewFromURL creates a Migrator from a database URL
func NewFromURL(databaseURL string, from Source, logger *zap.Logger) (*Migrator, error) {
	var (
		m   *migrate.Migrate
		err error
	)
	if from.Dir != "" {
		m, err = migrate.New(from.String(), databaseURL)
	} else {
		var drv source.Driver
		drv, err = embeddedDriver(migrations.FS)
		if err == nil {
			m, err = migrate.NewWithSourceInstance("iofs", drv, databaseURL)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance from %s: %w", from, err)
	}
	return newMigrator(m, from, logger), nil
}

func embeddedDriver(fsys fs.FS) (source.Driver, error) {
	return iofs.New(fsys, ".")
}

func newMigrator(m *migrate.Migrate, from Source, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{migrate: m, source: from, logger: logger.With(zap.String("source", from.String()))}
}

// applied logs the outcome of a migration command; ErrNoChange is not a failure
func (m *Migrator) applied(op string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Schema already up to date", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}

	st, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info("Migration applied",
		zap.String("op", op),
		zap.Uint("version", st.Version),
		zap.Bool("dirty", st.Dirty),
	)
	return nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	return m.applied("up", m.migrate.Up())
}

// Down rolls back all migrations
func (m *Migrator) Down() error {
	return m.applied("down", m.migrate.Down())
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.applied(fmt.Sprintf("steps(%d)", n), m.migrate.Steps(n))
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.applied(fmt.Sprintf("goto(%d)", version), m.migrate.Migrate(version))
}

// Status returns the current version; a fresh database is version 0
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Version returns the current version and dirty flag
func (m *Migrator) Version() (uint, bool, error) {
	st, err := m.Status()
	return st.Version, st.Dirty, err
}

// Force sets the version without running migrations, clearing a dirty state
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table, including snapshots and breakdowns
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all fleetcost tables")
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}
