package mysql

import (
	"context"
	"database/sql"
)

// Repo is the settings/options store: the durable home of refresh tokens,
// expiry markers, and last-error strings. Everything short-lived (the access
// token itself, room lists) lives in the TTL cache instead.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// GetOption returns the stored value, or "" when the option is unset.
func (r *Repo) GetOption(ctx context.Context, name string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, getOptionSQL, name).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *Repo) SetOption(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx, upsertOptionSQL, name, value)
	return err
}

func (r *Repo) DeleteOption(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, deleteOptionSQL, name)
	return err
}

// ListOptions returns all options under a name prefix, for the admin
// diagnostics view.
func (r *Repo) ListOptions(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, listOptionsSQL, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}
