package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/cheese-solo-chess/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS solo_games (
	game_id       TEXT PRIMARY KEY,
	human_color   TEXT NOT NULL,
	status        TEXT NOT NULL,
	winner        TEXT NOT NULL DEFAULT '',
	result        TEXT NOT NULL,
	result_method TEXT NOT NULL DEFAULT '',
	moves         JSONB NOT NULL,
	pgn           TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL DEFAULT 0
)`

// PostgresStore keeps every finished game in the solo_games table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (r *PostgresStore) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresStore) Record(ctx context.Context, g *domain.SoloGame) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	moves, err := json.Marshal(g.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const q = `INSERT INTO solo_games (
		game_id, human_color, status, winner, result, result_method,
		moves, pgn, started_at, ended_at, duration_ms
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9,$10,$11
	) ON CONFLICT (game_id) DO UPDATE SET
		status=EXCLUDED.status,
		winner=EXCLUDED.winner,
		result=EXCLUDED.result,
		result_method=EXCLUDED.result_method,
		moves=EXCLUDED.moves,
		pgn=EXCLUDED.pgn,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		g.GameID, g.HumanColor, g.Status, g.Winner, g.Result, g.ResultMethod,
		string(moves), g.PGN, g.StartedAt, g.EndedAt, g.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert solo game: %w", err)
	}
	return nil
}

func (r *PostgresStore) Recent(ctx context.Context, n int) ([]*domain.SoloGame, error) {
	if n <= 0 {
		n = 10
	}
	const q = `
		SELECT game_id, human_color, status, winner, result, result_method,
			moves, pgn, started_at, ended_at, duration_ms
		FROM solo_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("select solo games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.SoloGame, 0, n)
	for rows.Next() {
		var (
			g          domain.SoloGame
			movesJSON  []byte
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&g.GameID, &g.HumanColor, &g.Status, &g.Winner, &g.Result, &g.ResultMethod,
			&movesJSON, &g.PGN, &g.StartedAt, &g.EndedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan solo game: %w", err)
		}
		if durationMS.Valid {
			g.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		if err := json.Unmarshal(movesJSON, &g.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		games = append(games, &g)
	}
	return games, rows.Err()
}
