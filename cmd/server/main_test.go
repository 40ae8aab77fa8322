package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artificien/orchestrator/internal/config"
)

func TestNodeEnvironmentIncludesMasterNodeURL(t *testing.T) {
	env := nodeEnvironment(config.Config{MasterNodeURL: "https://orchestrator.example.com"})
	assert.Equal(t, "https://orchestrator.example.com", env["MASTER_NODE_URL"])
	assert.Equal(t, "5000", env["PORT"])
	assert.Equal(t, "sqlite:///databasenode.db", env["DATABASE_URL"])
}

func TestNodeEnvironmentWithoutMasterNodeURL(t *testing.T) {
	env := nodeEnvironment(config.Config{})
	assert.NotContains(t, env, "MASTER_NODE_URL")
}
