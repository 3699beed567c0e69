package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Summary is an overview of recorded usage
type Summary struct {
	Gestures    int
	Actions     int
	Failures    int
	ModeChanges int
	Sessions    int

	ActiveTime time.Duration // Sum of finished sessions
	StreakDays int           // Consecutive days with a session, ending today

	FavoriteMode    string // Most switched-to mode
	FavoriteCommand string // Most run command

	FirstUse time.Time
}

// Summary computes usage totals
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM gestures`, &sum.Gestures},
		{`SELECT COUNT(*) FROM invocations`, &sum.Actions},
		{`SELECT COUNT(*) FROM invocations WHERE status != 'success'`, &sum.Failures},
		{`SELECT COUNT(*) FROM mode_changes`, &sum.ModeChanges},
		{`SELECT COUNT(*) FROM sessions`, &sum.Sessions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return sum, fmt.Errorf("summary: %w", err)
		}
	}

	var err error
	if sum.FavoriteMode, err = s.top(ctx, `SELECT to_mode FROM mode_changes GROUP BY to_mode ORDER BY COUNT(*) DESC, to_mode LIMIT 1`); err != nil {
		return sum, err
	}
	if sum.FavoriteCommand, err = s.top(ctx, `SELECT command FROM invocations GROUP BY command ORDER BY COUNT(*) DESC, command LIMIT 1`); err != nil {
		return sum, err
	}

	if err := s.sessionTimes(ctx, &sum); err != nil {
		return sum, err
	}
	return sum, nil
}

func (s *Store) top(ctx context.Context, query string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, query).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	return name, nil
}

func (s *Store) sessionTimes(ctx context.Context, sum *Summary) error {
	rows, err := s.db.QueryContext(ctx, `SELECT started_at, ended_at FROM sessions ORDER BY started_at`)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	days := make(map[string]bool)
	for rows.Next() {
		var started string
		var ended sql.NullString
		if err := rows.Scan(&started, &ended); err != nil {
			return fmt.Errorf("summary: %w", err)
		}

		start, err := time.Parse(time.RFC3339Nano, started)
		if err != nil {
			continue
		}
		if sum.FirstUse.IsZero() {
			sum.FirstUse = start
		}
		days[start.Local().Format(time.DateOnly)] = true

		if ended.Valid {
			if end, err := time.Parse(time.RFC3339Nano, ended.String); err == nil && end.After(start) {
				sum.ActiveTime += end.Sub(start)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("summary: %w", err)
	}

	sum.StreakDays = streak(days, s.now())
	return nil
}

// streak counts consecutive days present in days, ending at today
func streak(days map[string]bool, today time.Time) int {
	n := 0
	for d := today.Local(); days[d.Format(time.DateOnly)]; d = d.AddDate(0, 0, -1) {
		n++
	}
	return n
}
