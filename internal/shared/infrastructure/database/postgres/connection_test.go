package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingURL(t *testing.T) {
	_, err := Open(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestOpen_InvalidURL(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", 0)
	assert.Error(t, err)
}

func TestOpen_Live(t *testing.T) {
	url := os.Getenv("PAYSMALL_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("PAYSMALL_TEST_POSTGRES_URL not set")
	}

	pool, err := Open(context.Background(), url, 2)
	require.NoError(t, err)
	defer pool.Close()

	assert.EqualValues(t, 2, pool.Config().MaxConns)
}
