package test_utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertUser creates a bare user row so rows referencing users can be stored.
func InsertUser(t *testing.T, db *pgxpool.Pool, username string) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (uid, username, display_name) VALUES ($1, $2, $2) RETURNING id`,
		uuid.NewString(), username,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertProject creates a project owned by userId and returns its id.
func InsertProject(t *testing.T, db *pgxpool.Pool, userId int, name string) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO project (user_id, name) VALUES ($1, $2) RETURNING id`, userId, name,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
