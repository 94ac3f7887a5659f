package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlbuilder/cli/internal/config"
	"github.com/satishbabariya/sqlbuilder/runtime/client"
)

func setup(t *testing.T) afero.Fs {
	t.Helper()
	prev := config.AppFs
	fs := afero.NewMemMapFs()
	config.AppFs = fs
	t.Cleanup(func() { config.AppFs = prev })

	homedir.DisableCache = true
	t.Setenv("HOME", "/home/tester")
	return fs
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCompile(t *testing.T) {
	fs := setup(t)
	require.NoError(t, afero.WriteFile(fs, "report.yaml", []byte("select: [name]\nfrom: users\nwhere: {active: true}\nlimit: 5\n"), 0o644))

	t.Run("filter only", func(t *testing.T) {
		out, err := run(t, "", "compile", "--filter", "age >= 18 AND status IN (1, 2)")
		require.NoError(t, err)
		assert.Contains(t, out, "(`age` >= ?) AND (`status` IN (?,?))")
		assert.Contains(t, out, "18")
	})

	t.Run("file with filter", func(t *testing.T) {
		out, err := run(t, "", "compile", "report.yaml", "-f", "team = 'red'")
		require.NoError(t, err)
		assert.Contains(t, out, "SELECT `name` FROM `users` WHERE (`active` = ?) AND (`team` = ?) LIMIT 5")
		assert.Contains(t, out, "red")
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := run(t, "from: users\ndelete: true\nwhere: id = 4\n", "compile", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "DELETE FROM `users` WHERE `id` = ?")
	})

	t.Run("markdown", func(t *testing.T) {
		out, err := run(t, "", "compile", "report.yaml", "--markdown")
		require.NoError(t, err)
		assert.Contains(t, out, "SELECT")
		assert.Contains(t, out, "report.yaml")
	})

	t.Run("errors", func(t *testing.T) {
		_, err := run(t, "", "compile")
		assert.ErrorContains(t, err, "--filter is required")

		_, err = run(t, "", "compile", "--watch", "--filter", "a = 1")
		assert.ErrorContains(t, err, "--watch requires a statement file")

		_, err = run(t, "", "compile", "missing.yaml")
		assert.Error(t, err)

		_, err = run(t, "", "compile", "--filter", "a = ")
		assert.Error(t, err)
	})
}

func TestQueryAndExec(t *testing.T) {
	fs := setup(t)
	dsn := "file:commands_test?mode=memory&cache=shared"
	t.Setenv("SQLBUILDER_DRIVER", client.DriverSQLite)
	t.Setenv("SQLBUILDER_DATABASE", dsn)

	ctx := context.Background()
	keeper, err := client.Open(ctx, client.Config{Driver: client.DriverSQLite, Database: dsn})
	require.NoError(t, err)
	defer keeper.Close()
	_, err = keeper.Exec(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, team TEXT)")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "seed.yaml", []byte("from: users\ninsert:\n  - {name: ann, team: red}\n  - {name: bob, team: blue}\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "names.yaml", []byte("select: [name]\nfrom: users\norder_by: {name: asc}\n"), 0o644))

	out, err := run(t, "", "exec", "seed.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "insert: 2 rows affected")

	out, err = run(t, "", "query", "names.yaml", "--filter", "team = 'red'", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "ann")
	assert.NotContains(t, out, "bob")
	assert.Contains(t, out, "sqlbuilder_queries_total")

	_, err = run(t, "", "query", "seed.yaml")
	assert.ErrorContains(t, err, "run with exec")

	_, err = run(t, "", "exec", "names.yaml")
	assert.ErrorContains(t, err, "run with query")

	out, err = run(t, "from: users\nwhere: team = 'blue'\ndelete: true\n", "exec", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "delete: 1 rows affected")
}

func TestConfigCommands(t *testing.T) {
	fs := setup(t)
	t.Setenv("SQLBUILDER_DATABASE", "shop")
	t.Setenv("SQLBUILDER_PASSWORD", "secret")

	out, err := run(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "shop")
	assert.NotContains(t, out, "secret")

	out, err = run(t, "", "config", "save")
	require.NoError(t, err)
	assert.Contains(t, out, "saved /home/tester/.config/sqlbuilder/.sqlbuilder.yaml")

	exists, err := afero.Exists(fs, "/home/tester/.config/sqlbuilder/.sqlbuilder.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestVersionCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlbuilder version")
	assert.Contains(t, out, "Go Version")
}
