package jobstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/imamik/launchpad/internal/deployment"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLStore keeps jobs in a SQLite database. Job locks are leases in the
// job_locks table that a heartbeat renews while they are held.
type SQLStore struct {
	db     *sql.DB
	lease  leaseOptions
	ctx    context.Context
	cancel context.CancelFunc
}

// OpenSQLStore opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open job database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	storeCtx, cancel := context.WithCancel(context.Background())
	return &SQLStore{db: db, lease: newLeaseOptions(opts), ctx: storeCtx, cancel: cancel}, nil
}

// migrate applies embedded migrations in order.
func migrate(ctx context.Context, db *sql.DB) error {
	files, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	var current int
	err = tx.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema_version: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, f := range files {
		var version int
		if _, err := fmt.Sscanf(f.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("invalid migration filename %s: %w", f.Name(), err)
		}
		if version <= current {
			continue
		}
		stmt, err := migrationsFS.ReadFile("migrations/" + f.Name())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(stmt)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET version = ?`, version); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
	}
	return tx.Commit()
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (*deployment.ProvisionJob, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM provision_jobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	return decode(data)
}

// Put implements Store.
func (s *SQLStore) Put(ctx context.Context, job *deployment.ProvisionJob) error {
	if err := checkID(job.ID); err != nil {
		return err
	}
	data, err := encode(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO provision_jobs(id, domain, state, created_at, updated_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			domain = excluded.domain,
			state = excluded.state,
			updated_at = excluded.updated_at,
			snapshot = excluded.snapshot`,
		job.ID, job.Domain, string(job.State),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.UpdatedAt.UTC().Format(time.RFC3339Nano),
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	return nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context) ([]*deployment.ProvisionJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT snapshot FROM provision_jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*deployment.ProvisionJob
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		job, err := decode(data)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Lock inserts a row into job_locks, or takes over a row whose lease has
// expired. A live row means the lock is held.
func (s *SQLStore) Lock(ctx context.Context, id string) (Unlocker, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	holder := fmt.Sprintf("%d/%s", os.Getpid(), uuid.NewString())
	now := s.lease.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_locks(job_id, holder, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			holder = excluded.holder,
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at
		WHERE job_locks.expires_at <= ?`,
		id, holder, now.UTC().Format(time.RFC3339Nano), now.Add(s.lease.ttl).UnixNano(),
		now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrLocked
	}
	l := &sqlLock{store: s, id: id, holder: holder}
	l.beat = startHeartbeat(s.ctx, s.lease.ttl, id, l.renew)
	return l, nil
}

// ForceUnlock removes the lock row for id whoever holds it.
func (s *SQLStore) ForceUnlock(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_locks WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("failed to force unlock job %s: %w", id, err)
	}
	return nil
}

// Close stops lease renewals and closes the database.
func (s *SQLStore) Close() error {
	s.cancel()
	return s.db.Close()
}

type sqlLock struct {
	store  *SQLStore
	id     string
	holder string
	beat   *heartbeat
}

// renew extends the lease. It fails with ErrLeaseLost once another holder
// took the row over.
func (l *sqlLock) renew(ctx context.Context) error {
	expires := l.store.lease.now().Add(l.store.lease.ttl).UnixNano()
	res, err := l.store.db.ExecContext(ctx,
		`UPDATE job_locks SET expires_at = ? WHERE job_id = ? AND holder = ?`,
		expires, l.id, l.holder,
	)
	if err != nil {
		return fmt.Errorf("failed to renew lock %s: %w", l.id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", l.id, ErrLeaseLost)
	}
	return nil
}

func (l *sqlLock) Unlock() error {
	l.beat.stop()
	_, err := l.store.db.Exec(`DELETE FROM job_locks WHERE job_id = ? AND holder = ?`, l.id, l.holder)
	if err != nil {
		return fmt.Errorf("failed to unlock job %s: %w", l.id, err)
	}
	return nil
}
