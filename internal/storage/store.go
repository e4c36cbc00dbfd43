package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nikbrunner/folderlink/internal/invite"
	"github.com/nikbrunner/folderlink/internal/model"
)

const currentSchemaVersion = 1

// SQLStore is the local peer directory and filter registry.
type SQLStore struct {
	db     *sql.DB
	path   string
	rebind func(string) string
}

// Path returns the database path or DSN.
func (s *SQLStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}
	return nil
}

// migrateV1 creates the initial schema.
func (s *SQLStore) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS peers (
			id BIGINT PRIMARY KEY NOT NULL,
			kind INTEGER NOT NULL,
			title TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			access_hash BIGINT NOT NULL DEFAULT 0,
			admin_rights BIGINT
		);

		CREATE TABLE IF NOT EXISTS presences (
			peer_id BIGINT PRIMARY KEY NOT NULL,
			online INTEGER NOT NULL DEFAULT 0,
			last_seen TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chat_list (
			peer_id BIGINT PRIMARY KEY NOT NULL,
			sort_order BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS filters (
			id INTEGER NOT NULL,
			remote INTEGER NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			include_peers TEXT NOT NULL DEFAULT '[]',
			exclude_peers TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (id, remote)
		);

		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLStore) View(ctx context.Context, fn func(tx invite.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	return fn(&sqlTx{ctx: ctx, tx: tx, rebind: s.rebind})
}

// Update runs fn in a transaction committed only if fn returns nil.
func (s *SQLStore) Update(ctx context.Context, fn func(tx invite.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{ctx: ctx, tx: tx, rebind: s.rebind}); err != nil {
		return err
	}
	return tx.Commit()
}

// SetChatListIndex records that the account has joined index.PeerID.
func (s *SQLStore) SetChatListIndex(ctx context.Context, index model.ChatListIndex) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO chat_list (peer_id, sort_order) VALUES (?, ?)
		ON CONFLICT (peer_id) DO UPDATE SET sort_order = excluded.sort_order
	`), int64(index.PeerID), index.Order)
	return err
}

// RemoveChatListIndex records that the account has left id.
func (s *SQLStore) RemoveChatListIndex(ctx context.Context, id model.PeerID) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM chat_list WHERE peer_id = ?`), int64(id))
	return err
}

// ListPeers returns every cached peer ordered by title.
func (s *SQLStore) ListPeers(ctx context.Context) ([]model.Peer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, username, access_hash, admin_rights
		FROM peers
		ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	peers := []model.Peer{}
	for rows.Next() {
		p, err := scanPeer(rows)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeer(row rowScanner) (model.Peer, error) {
	var p model.Peer
	var id int64
	var kind int
	var rights sql.NullInt64
	if err := row.Scan(&id, &kind, &p.Title, &p.Username, &p.AccessHash, &rights); err != nil {
		return model.Peer{}, err
	}
	p.ID = model.PeerID(id)
	p.Kind = model.PeerKind(kind)
	if rights.Valid {
		r := model.AdminRights(rights.Int64)
		p.AdminRights = &r
	}
	return p, nil
}

// sqlTx implements invite.Tx over a database transaction.
type sqlTx struct {
	ctx    context.Context
	tx     *sql.Tx
	rebind func(string) string
}

func (t *sqlTx) Peer(id model.PeerID) (*model.Peer, error) {
	row := t.tx.QueryRowContext(t.ctx, t.rebind(`
		SELECT id, kind, title, username, access_hash, admin_rights
		FROM peers WHERE id = ?
	`), int64(id))
	p, err := scanPeer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *sqlTx) ChatListIndex(id model.PeerID) (*model.ChatListIndex, error) {
	var order int64
	err := t.tx.QueryRowContext(t.ctx, t.rebind(`SELECT sort_order FROM chat_list WHERE peer_id = ?`), int64(id)).Scan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.ChatListIndex{PeerID: id, Order: order}, nil
}

func (t *sqlTx) UpsertPeers(peers []model.Peer) error {
	if len(peers) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(t.ctx, t.rebind(`
		INSERT INTO peers (id, kind, title, username, access_hash, admin_rights)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			username = excluded.username,
			access_hash = excluded.access_hash,
			admin_rights = excluded.admin_rights
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range peers {
		var rights sql.NullInt64
		if p.AdminRights != nil {
			rights = sql.NullInt64{Int64: int64(*p.AdminRights), Valid: true}
		}
		if _, err := stmt.ExecContext(t.ctx,
			int64(p.ID), int(p.Kind), p.Title, p.Username, p.AccessHash, rights,
		); err != nil {
			return fmt.Errorf("upsert peer %d: %w", p.ID, err)
		}
	}
	return nil
}

func (t *sqlTx) UpsertPresences(presences map[model.PeerID]model.Presence) error {
	if len(presences) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(t.ctx, t.rebind(`
		INSERT INTO presences (peer_id, online, last_seen)
		VALUES (?, ?, ?)
		ON CONFLICT (peer_id) DO UPDATE SET
			online = excluded.online,
			last_seen = excluded.last_seen
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, p := range presences {
		online := 0
		if p.Online {
			online = 1
		}
		if _, err := stmt.ExecContext(t.ctx, int64(id), online, p.LastSeen.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("upsert presence %d: %w", id, err)
		}
	}
	return nil
}

func (t *sqlTx) FilterState() (model.FilterState, error) {
	state := model.NewFilterState()
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT id, remote, title, include_peers, exclude_peers
		FROM filters
		ORDER BY remote, position
	`)
	if err != nil {
		return state, err
	}
	defer rows.Close()

	for rows.Next() {
		var f model.Folder
		var remote int
		var includeJSON, excludeJSON string
		if err := rows.Scan(&f.ID, &remote, &f.Title, &includeJSON, &excludeJSON); err != nil {
			return state, err
		}
		if err := json.Unmarshal([]byte(includeJSON), &f.IncludePeers); err != nil {
			return state, fmt.Errorf("decode include peers of filter %d: %w", f.ID, err)
		}
		if err := json.Unmarshal([]byte(excludeJSON), &f.ExcludePeers); err != nil {
			return state, fmt.Errorf("decode exclude peers of filter %d: %w", f.ID, err)
		}

		if remote == 1 {
			state.RemoteFilters = append(state.RemoteFilters, f)
		} else {
			state.Filters = append(state.Filters, f)
		}
	}
	return state, rows.Err()
}

// UpdateFilterState replaces the registry with the result of fn.
func (t *sqlTx) UpdateFilterState(fn func(model.FilterState) model.FilterState) error {
	current, err := t.FilterState()
	if err != nil {
		return err
	}
	next := fn(current)

	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM filters"); err != nil {
		return err
	}
	stmt, err := t.tx.PrepareContext(t.ctx, t.rebind(`
		INSERT INTO filters (id, remote, position, title, include_peers, exclude_peers)
		VALUES (?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	insert := func(folders []model.Folder, remote int) error {
		for i, f := range folders {
			includeJSON, err := marshalPeerIDs(f.IncludePeers)
			if err != nil {
				return err
			}
			excludeJSON, err := marshalPeerIDs(f.ExcludePeers)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(t.ctx, f.ID, remote, i, f.Title, includeJSON, excludeJSON); err != nil {
				return fmt.Errorf("insert filter %d: %w", f.ID, err)
			}
		}
		return nil
	}
	if err := insert(next.Filters, 0); err != nil {
		return err
	}
	return insert(next.RemoteFilters, 1)
}

func marshalPeerIDs(ids []model.PeerID) (string, error) {
	if ids == nil {
		return "[]", nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
