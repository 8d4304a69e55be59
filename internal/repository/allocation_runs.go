package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

const runColumns = `
	id,
	status,
	population_size,
	generations,
	mutation_rate,
	affinity_pairs,
	seed,
	notify_email,
	best_penalty,
	history,
	error_message,
	created_at,
	finished_at,
	version
`

func scanRun(scanner interface{ Scan(dest ...any) error }) (*domain.AllocationRun, error) {
	run := &domain.AllocationRun{}

	var (
		pairs       []byte
		history     []byte
		bestPenalty sql.NullFloat64
		finishedAt  sql.NullTime
	)

	dst := []any{
		&run.ID,
		&run.Status,
		&run.PopulationSize,
		&run.Generations,
		&run.MutationRate,
		&pairs,
		&run.Seed,
		&run.NotifyEmail,
		&bestPenalty,
		&history,
		&run.ErrorMessage,
		&run.CreatedAt,
		&finishedAt,
		&run.Version,
	}
	if err := scanner.Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pairs, &run.AffinityPairs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &run.History); err != nil {
		return nil, err
	}
	if bestPenalty.Valid {
		run.BestPenalty = &bestPenalty.Float64
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

func (r *Repository) CreateAllocationRun(run *domain.AllocationRun) error {
	query := `
		INSERT INTO allocation_runs (
			status,
			population_size,
			generations,
			mutation_rate,
			affinity_pairs,
			seed,
			notify_email
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	pairs, err := json.Marshal(run.AffinityPairs)
	if err != nil {
		return err
	}

	run.Status = domain.RunStatusPending
	params := []any{
		string(run.Status),
		run.PopulationSize,
		run.Generations,
		run.MutationRate,
		pairs,
		run.Seed,
		run.NotifyEmail,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&run.ID, &run.CreatedAt, &run.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllocationRunByID(id int64) (*domain.AllocationRun, error) {
	query := `SELECT ` + runColumns + ` FROM allocation_runs WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return scanRun(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetAllAllocationRuns() ([]*domain.AllocationRun, error) {
	query := `SELECT ` + runColumns + ` FROM allocation_runs ORDER BY id DESC`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*domain.AllocationRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		// 列表中不返回迭代记录，避免响应过大
		run.History = nil
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// MarkAllocationRunRunning 只有处于 pending 的任务才能开始，避免消息重复投递时重复计算
func (r *Repository) MarkAllocationRunRunning(run *domain.AllocationRun) error {
	query := `
		UPDATE allocation_runs
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3 AND status = $4
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{string(domain.RunStatusRunning), run.ID, run.Version, string(domain.RunStatusPending)}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&run.Version); err != nil {
		return err
	}

	run.Status = domain.RunStatusRunning
	return nil
}

// ResetAllocationRun 把执行到一半被中断的任务放回待处理状态，消息重新投递后可以从头再跑
func (r *Repository) ResetAllocationRun(run *domain.AllocationRun) error {
	query := `
		UPDATE allocation_runs
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3 AND status = $4
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{string(domain.RunStatusPending), run.ID, run.Version, string(domain.RunStatusRunning)}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&run.Version); err != nil {
		return err
	}

	run.Status = domain.RunStatusPending
	return nil
}

func (r *Repository) MarkAllocationRunFailed(run *domain.AllocationRun, message string) error {
	query := `
		UPDATE allocation_runs
		SET status = $1, error_message = $2, finished_at = NOW(), version = version + 1
		WHERE id = $3
		RETURNING finished_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var finishedAt time.Time
	if err := r.dbpool.QueryRowContext(ctx, query, string(domain.RunStatusFailed), message, run.ID).Scan(&finishedAt, &run.Version); err != nil {
		return err
	}

	run.Status = domain.RunStatusFailed
	run.ErrorMessage = message
	run.FinishedAt = &finishedAt
	return nil
}

// FinishAllocationRun 写入最优解、惩罚值和迭代记录
func (r *Repository) FinishAllocationRun(run *domain.AllocationRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	history, err := json.Marshal(run.History)
	if err != nil {
		return err
	}

	query := `
		UPDATE allocation_runs
		SET
			status = $1,
			best_penalty = $2,
			history = $3,
			finished_at = NOW(),
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING finished_at, version
	`

	var finishedAt time.Time
	params := []any{string(domain.RunStatusFinished), run.BestPenalty, history, run.ID, run.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&finishedAt, &run.Version); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM allocation_placements WHERE allocation_run_id = $1`, run.ID); err != nil {
		return err
	}

	for _, placement := range run.Placements {
		query := `
			INSERT INTO allocation_placements (allocation_run_id, position, product_id, shelf_id)
			VALUES ($1, $2, $3, $4)
		`

		if _, err := tx.ExecContext(ctx, query, run.ID, placement.Position, placement.ProductID, placement.ShelfID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	run.Status = domain.RunStatusFinished
	run.FinishedAt = &finishedAt
	return nil
}

func (r *Repository) GetAllocationPlacements(runID int64) ([]domain.AllocationPlacement, error) {
	query := `
		SELECT position, product_id, shelf_id
		FROM allocation_placements
		WHERE allocation_run_id = $1
		ORDER BY position
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	placements := []domain.AllocationPlacement{}
	for rows.Next() {
		var p domain.AllocationPlacement
		if err := rows.Scan(&p.Position, &p.ProductID, &p.ShelfID); err != nil {
			return nil, err
		}
		placements = append(placements, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return placements, nil
}

func (r *Repository) DeleteAllocationRun(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, `DELETE FROM allocation_runs WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
