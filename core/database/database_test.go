package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestConfigConnectionStrings(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "shop", Password: "p@ss", Name: "starshop"}
	assert.Equal(t, "user=shop password=p@ss host=db port=5432 dbname=starshop sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestMigrationFileSelection(t *testing.T) {
	files := fstest.MapFS{
		"0001_init.up.sql":    {Data: []byte("--")},
		"0001_init.down.sql":  {Data: []byte("--")},
		"0002_indexes.up.sql": {Data: []byte("--")},
		"0003_welcome.up.sql": {Data: []byte("--")},
		"embed.go":            {Data: []byte("package migrations")},
	}
	names := listMigrationFiles(files)
	assert.Equal(t, []string{"0001_init.up.sql", "0002_indexes.up.sql", "0003_welcome.up.sql"}, names)
	assert.Equal(t, []string{"0002_indexes.up.sql", "0003_welcome.up.sql"}, selectApplied(names, 1, 3))
	assert.Empty(t, selectApplied(names, 3, 3))
	assert.Equal(t, uint64(2), parseVersion("0002_indexes.up.sql"))
}
