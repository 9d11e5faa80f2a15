package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
	"valux/pkg/core/sensitivity"
	"valux/pkg/core/valuation"
)

// ErrRunNotFound is returned by Get for unknown run IDs
var ErrRunNotFound = errors.New("valuation run not found")

// Run modes
const (
	ModeDCF         = "dcf"
	ModeSensitivity = "sensitivity"
)

// Run is one persisted valuation: its inputs and everything computed from them
type Run struct {
	ID            string                        `json:"id"`
	Ticker        string                        `json:"ticker"`
	CompanyName   string                        `json:"company_name,omitempty"`
	Mode          string                        `json:"mode"`
	ValuationDate string                        `json:"valuation_date"` // YYYY-MM-DD
	Snapshot      projection.HistoricalSnapshot `json:"snapshot"`
	Assumptions   assumption.AssumptionSet      `json:"assumptions"`
	Result        *valuation.ValuationResult    `json:"result,omitempty"`
	Sensitivity   *sensitivity.Grid             `json:"sensitivity,omitempty"`
	Gap           *valuation.GapAnalysis        `json:"gap_analysis,omitempty"`
	CreatedAt     time.Time                     `json:"created_at"`
}

// NewRun stamps a fresh ID and today's date on a run. Tickers are stored upper-case.
func NewRun(mode string, snapshot projection.HistoricalSnapshot, a assumption.AssumptionSet) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:            uuid.NewString(),
		Ticker:        strings.ToUpper(snapshot.Ticker),
		CompanyName:   snapshot.CompanyName,
		Mode:          mode,
		ValuationDate: now.Format("2006-01-02"),
		Snapshot:      snapshot,
		Assumptions:   a,
		CreatedAt:     now,
	}
}

// ValuationRepo persists runs.
// Hybrid: DB (Primary) + File System (Fallback/Local)
type ValuationRepo struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewValuationRepo creates a repository. With a nil pool, runs are written as JSON
// files under dir (".cache/valuations" when dir is empty).
func NewValuationRepo(pool *pgxpool.Pool, dir string) *ValuationRepo {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "valuations")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] Check valuation cache dir: %v\n", err)
		}
	}
	return &ValuationRepo{pool: pool, fileDir: dir}
}

// OpenValuationRepo connects to dbURL and prepares the schema. Any failure on the way
// leaves the repository on JSON files under dir, never on a half-ready pool.
func OpenValuationRepo(ctx context.Context, dbURL, dir string) *ValuationRepo {
	if dbURL == "" {
		return NewValuationRepo(nil, dir)
	}
	if err := InitDB(ctx, dbURL); err != nil {
		fmt.Printf("[WARNING] Database unavailable, using file repository: %v\n", err)
		return NewValuationRepo(nil, dir)
	}
	if err := EnsureSchema(ctx, GetPool()); err != nil {
		fmt.Printf("[WARNING] Schema unavailable, using file repository: %v\n", err)
		return NewValuationRepo(nil, dir)
	}
	fmt.Println("[STORE] Connected to Postgres")
	return NewValuationRepo(GetPool(), dir)
}

// Save persists a run. The DB row and the file copy are both written when configured.
func (r *ValuationRepo) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.ValuationDate == "" {
		run.ValuationDate = run.CreatedAt.Format("2006-01-02")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if r.pool != nil {
		var perShare *float64
		if run.Result != nil {
			perShare = &run.Result.PerShareValue
		}
		query := `
			INSERT INTO valuations (id, ticker, company_name, mode, valuation_date, per_share, run_json, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id)
			DO UPDATE SET
				run_json = EXCLUDED.run_json,
				per_share = EXCLUDED.per_share
		`
		_, err = r.pool.Exec(ctx, query,
			run.ID, run.Ticker, run.CompanyName, run.Mode, run.ValuationDate, perShare, data, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	}

	if r.fileDir != "" {
		if err := os.WriteFile(r.runPath(run.ID), data, 0644); err != nil {
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
	}
	return nil
}

// Get loads a run by ID
func (r *ValuationRepo) Get(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if r.pool != nil {
		var data []byte
		err := r.pool.QueryRow(ctx, `SELECT run_json FROM valuations WHERE id = $1`, id).Scan(&data)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
			}
			return nil, fmt.Errorf("failed to load run: %w", err)
		}
		return decodeRun(data)
	}

	data, err := os.ReadFile(r.runPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	return decodeRun(data)
}

// ListByTicker returns the runs of a ticker, newest first. limit <= 0 means no limit.
func (r *ValuationRepo) ListByTicker(ctx context.Context, ticker string, limit int) ([]*Run, error) {
	if r.pool != nil {
		return r.listFromDB(ctx, ticker, limit)
	}

	// File fallback (Scan)
	paths, err := filepath.Glob(filepath.Join(r.fileDir, "*.json"))
	if err != nil {
		return nil, err
	}
	var runs []*Run
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		run, err := decodeRun(data)
		if err != nil {
			fmt.Printf("[WARNING] Skipping unreadable run %s: %v\n", filepath.Base(p), err)
			continue
		}
		if run.Ticker == ticker {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *ValuationRepo) listFromDB(ctx context.Context, ticker string, limit int) ([]*Run, error) {
	query := `SELECT run_json FROM valuations WHERE ticker = $1 ORDER BY created_at DESC`
	args := []any{ticker}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		run, err := decodeRun(data)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *ValuationRepo) runPath(id string) string {
	return filepath.Join(r.fileDir, id+".json")
}

func decodeRun(data []byte) (*Run, error) {
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}
