// Package repository contém as implementações dos repositórios para acesso aos dados
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/pos-sync-engine/infrastructure/database/sqldb"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

//go:generate mockgen -source=snapshot_cache.go -destination=mocks/snapshot_cache.go -package=mocks

const snapshotCacheTable = "snapshot_cache"

type SnapshotCacheRepository interface {
	// Load retorna nil quando a coleção nunca foi persistida
	Load(ctx context.Context, collection domain.Collection) (*domain.CachedSnapshot, error)
	Save(ctx context.Context, snapshot *domain.CachedSnapshot) error
}

type snapshotCacheRepository struct {
	conn sqldb.Executor
}

func NewSnapshotCacheRepository(conn sqldb.Executor) SnapshotCacheRepository {
	return &snapshotCacheRepository{
		conn: conn,
	}
}

func (r *snapshotCacheRepository) Load(ctx context.Context, collection domain.Collection) (*domain.CachedSnapshot, error) {
	query, args, err := r.conn.Builder().
		Select("collection", "payload", "records", "version", "updated_at").
		From(snapshotCacheTable).
		Where(squirrel.Eq{"collection": string(collection)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var (
		cached  domain.CachedSnapshot
		name    string
		payload string
		version int64
	)
	err = r.conn.QueryRow(ctx, query, args...).Scan(&name, &payload, &cached.Records, &version, &cached.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao carregar snapshot de %s: %w", collection, err)
	}

	cached.Collection = domain.Collection(name)
	cached.Payload = []byte(payload)
	cached.Version = uint64(version)
	return &cached, nil
}

func (r *snapshotCacheRepository) Save(ctx context.Context, snapshot *domain.CachedSnapshot) error {
	updatedAt := snapshot.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query, args, err := r.conn.Builder().
		Insert(snapshotCacheTable).
		Columns("collection", "payload", "records", "version", "updated_at").
		Values(string(snapshot.Collection), string(snapshot.Payload), snapshot.Records, int64(snapshot.Version), updatedAt.UTC()).
		Suffix(`
			ON CONFLICT (collection) DO UPDATE SET
				payload = EXCLUDED.payload,
				records = EXCLUDED.records,
				version = EXCLUDED.version,
				updated_at = EXCLUDED.updated_at
		`).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir query de inserção: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao salvar snapshot de %s: %w", snapshot.Collection, err)
	}

	return nil
}
