package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/dayplan-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "planner", Password: "secret", Name: "dayplan"})
	assert.Equal(t, "host=db port=5432 user=planner password=secret dbname=dayplan sslmode=disable", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "planner", Name: "dayplan", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}
