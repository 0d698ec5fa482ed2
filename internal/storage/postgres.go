package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"finpulse/internal/common/database"
)

// PostgresStore keeps all items in one table:
//
//	CREATE TABLE items (
//	    tbl TEXT NOT NULL,
//	    k   TEXT NOT NULL,
//	    v   JSONB NOT NULL,
//	    PRIMARY KEY (tbl, k)
//	);
type PostgresStore struct {
	client *database.PostgresClient
}

func NewPostgresStore(client *database.PostgresClient) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) Get(ctx context.Context, table, key string) (json.RawMessage, error) {
	var value []byte
	row := s.client.QueryRow(ctx, "SELECT v FROM items WHERE tbl = $1 AND k = $2", table, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("item get failed: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Put(ctx context.Context, table, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.Exec(ctx,
		"INSERT INTO items (tbl, k, v) VALUES ($1, $2, $3) ON CONFLICT (tbl, k) DO UPDATE SET v = EXCLUDED.v",
		table, key, data)
	if err != nil {
		return fmt.Errorf("item put failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutIfAbsent(ctx context.Context, table, key string, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal item: %w", err)
	}

	result, err := s.client.Exec(ctx,
		"INSERT INTO items (tbl, k, v) VALUES ($1, $2, $3) ON CONFLICT (tbl, k) DO NOTHING",
		table, key, data)
	if err != nil {
		return false, fmt.Errorf("item conditional put failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("item conditional put failed: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) Delete(ctx context.Context, table, key string) error {
	if _, err := s.client.Exec(ctx, "DELETE FROM items WHERE tbl = $1 AND k = $2", table, key); err != nil {
		return fmt.Errorf("item delete failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, table, keyPrefix string) (map[string]json.RawMessage, error) {
	rows, err := s.client.Query(ctx,
		"SELECT k, v FROM items WHERE tbl = $1 AND k LIKE $2 || '%'", table, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("item query failed: %w", err)
	}
	defer rows.Close()

	items := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("item query scan failed: %w", err)
		}
		items[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item query failed: %w", err)
	}

	return items, nil
}
