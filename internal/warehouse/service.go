package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mlprep/pkg/errors"
)

// DefaultTimeout bounds a single remote call when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// Client is the set of warehouse operations the pipeline steps use.
type Client interface {
	EnsureDataset(ctx context.Context, ds DatasetRef, location string) error
	DeleteTable(ctx context.Context, ref TableRef) error
	LoadCSV(ctx context.Context, ref TableRef, source string, schema Schema, opts CSVOptions) error
	Query(ctx context.Context, target TableRef, query string) error
	RowCount(ctx context.Context, ref TableRef) (int64, error)
	PartitionCounts(ctx context.Context, ref TableRef, column string) (map[string]int64, error)
	Dialect() Dialect
	Close() error
}

// Config holds Service settings
type Config struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Service implements Client over database/sql.
type Service struct {
	db      *sql.DB
	dialect Dialect
	config  Config
	log     *zap.Logger

	mu       sync.Mutex
	prepared map[string]bool
}

var _ Client = (*Service)(nil)

// NewService wraps an open database handle.
func NewService(db *sql.DB, dialect Dialect, config Config) *Service {
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       db,
		dialect:  dialect,
		config:   config,
		log:      log.With(zap.String("backend", dialect.Name())),
		prepared: make(map[string]bool),
	}
}

// Dialect returns the SQL dialect of the backend.
func (s *Service) Dialect() Dialect {
	return s.dialect
}

// DB returns the underlying database handle
func (s *Service) DB() *sql.DB {
	return s.db
}

// Close closes the database handle.
func (s *Service) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// EnsureDataset creates the dataset if it does not exist yet.
func (s *Service) EnsureDataset(ctx context.Context, ds DatasetRef, location string) error {
	if err := s.prepareCatalog(ctx, ds.Project); err != nil {
		return err
	}

	s.log.Info("Checking for existence of dataset, creating it if absent",
		zap.String("dataset", ds.String()))
	for _, stmt := range s.dialect.CreateDatasetSQL(ds) {
		if err := s.exec(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.GetErrorCode(err), "Failed to create dataset").
				WithContext("dataset", ds.String())
		}
	}
	s.log.Info("Dataset ready", zap.String("dataset", ds.String()), zap.String("location", location))
	return nil
}

// DeleteTable drops the table. A missing table is not an error.
func (s *Service) DeleteTable(ctx context.Context, ref TableRef) error {
	if err := s.prepareCatalog(ctx, ref.Project); err != nil {
		return err
	}

	err := s.exec(ctx, "DROP TABLE IF EXISTS "+Qualified(s.dialect, ref))
	if err != nil && errors.HasCode(err, errors.ErrCodeSQLObjectNotFound) {
		s.log.Debug("Table to delete was not found", zap.String("table", ref.String()), zap.Error(err))
		return nil
	}
	return err
}

// LoadCSV creates ref with the given schema and bulk loads source into it.
func (s *Service) LoadCSV(ctx context.Context, ref TableRef, source string, schema Schema, opts CSVOptions) error {
	if err := s.prepareCatalog(ctx, ref.Project); err != nil {
		return err
	}
	if err := s.exec(ctx, CreateTableSQL(s.dialect, ref, schema)); err != nil {
		return err
	}

	s.log.Info("Loading blob into table", zap.String("source", source), zap.String("table", ref.String()))
	ctx, cancel := s.getContext(ctx)
	defer cancel()

	if err := s.dialect.CopyCSV(ctx, s.db, ref, source, schema, opts); err != nil {
		return errors.Wrap(err, errors.ErrCodeLoadFailed, "Load job failed").
			WithContext("source", source).
			WithContext("table", ref.String()).
			WithSuggestions(
				"Check that every row matches the fixed column schema",
				"Verify the warehouse can read the source location",
			)
	}
	return nil
}

// Query runs a statement that creates or replaces target, waiting for it to
// complete. Any result set is discarded.
func (s *Service) Query(ctx context.Context, target TableRef, query string) error {
	if err := s.prepareCatalog(ctx, target.Project); err != nil {
		return err
	}
	if err := s.exec(ctx, query); err != nil {
		return errors.Wrap(err, errors.GetErrorCode(err), "Query failed").
			WithContext("target", target.String())
	}
	return nil
}

// RowCount returns the number of rows in a table or view.
func (s *Service) RowCount(ctx context.Context, ref TableRef) (int64, error) {
	if err := s.prepareCatalog(ctx, ref.Project); err != nil {
		return 0, err
	}

	query := "SELECT COUNT(*) FROM " + Qualified(s.dialect, ref)
	ctx, cancel := s.getContext(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.SQLError("Failed to count rows", query, err).
			WithContext("table", ref.String())
	}
	return n, nil
}

// PartitionCounts groups a table by column and returns the row count per value.
func (s *Service) PartitionCounts(ctx context.Context, ref TableRef, column string) (map[string]int64, error) {
	if err := s.prepareCatalog(ctx, ref.Project); err != nil {
		return nil, err
	}

	col := s.dialect.Quote(column)
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s GROUP BY %s", col, Qualified(s.dialect, ref), col)
	ctx, cancel := s.getContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.SQLError("Failed to count partitions", query, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label sql.NullString
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "Failed to read partition counts")
		}
		counts[label.String] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.SQLError("Failed to count partitions", query, err)
	}
	return counts, nil
}

func (s *Service) exec(ctx context.Context, query string) error {
	ctx, cancel := s.getContext(ctx)
	defer cancel()

	s.log.Debug("Executing statement", zap.String("sql", OneLine(query)))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.SQLError("Statement failed", query, err)
	}
	return nil
}

// prepareCatalog runs the dialect's catalog hook once per project.
func (s *Service) prepareCatalog(ctx context.Context, project string) error {
	preparer, ok := s.dialect.(CatalogPreparer)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prepared[project] {
		return nil
	}

	ctx, cancel := s.getContext(ctx)
	defer cancel()
	if err := preparer.PrepareCatalog(ctx, s.db, project); err != nil {
		return errors.Wrap(err, errors.GetErrorCode(err), "Failed to prepare project catalog").
			WithContext("project", project)
	}
	s.prepared[project] = true
	return nil
}

func (s *Service) getContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(parent, timeout)
}
