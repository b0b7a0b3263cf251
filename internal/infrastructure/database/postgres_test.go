package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDSN(t *testing.T) {
	cases := map[string]string{
		"  postgresql+asyncpg://u:p@h/db ": "postgresql://u:p@h/db",
		"postgres+asyncpg://u@h/db":        "postgres://u@h/db",
		"postgresql+pgx://h/db":            "postgresql://h/db",
		"postgres://h/db?sslmode=disable":  "postgres://h/db?sslmode=disable",
		"":                                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeDSN(in), in)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS chat.message")
}
