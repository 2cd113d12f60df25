package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laurinneff/passwd.mgr/internal/crypto"
	"github.com/laurinneff/passwd.mgr/internal/models"
	"github.com/laurinneff/passwd.mgr/internal/services/store"
	"github.com/laurinneff/passwd.mgr/internal/storage"
	"github.com/laurinneff/passwd.mgr/internal/vault"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// newTestEnv isolates config lookup and keeps key derivation cheap.
func newTestEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("PASSWDMGR_PASSWORD", "")
	t.Setenv("PASSWDMGR_CRYPTO_KDF", crypto.KDFPBKDF2)
	t.Setenv("PASSWDMGR_CRYPTO_PBKDF2_ITERATIONS", "1000")
	t.Setenv("PASSWDMGR_LOG_LEVEL", "error")

	return filepath.Join(dir, "db.passwddb")
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	cfgFile, jsonOutput = "", false
	stdinSource, stdinReader = nil, nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "passwdmgr %s", strings.Join(args, " "))
	return out
}

func inspectFile(t *testing.T, path string) vault.Header {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	header, err := vault.NewCodec().Inspect(raw)
	require.NoError(t, err)
	return header
}

func TestExampleScenario(t *testing.T) {
	db := newTestEnv(t)
	base := []string{"-d", db, "-p", "superSecurePassword"}
	with := func(args ...string) []string {
		return append(append([]string{}, base...), args...)
	}

	out := runOK(t, with("-e", "aes256", "create")...)
	assert.Equal(t, fmt.Sprintf("Created a aes256-encrypted password database at %s\n", db), out)

	assert.Equal(t, "No sites found in the database\n", runOK(t, with("list")...))

	out = runOK(t, with("add", "-s", "example.com", "-u", "Me", "-m", "me@example.com", "-P", "myPassword")...)
	assert.Equal(t, "Added the site 'example.com'\n", out)

	assert.Equal(t, "example.com\n", runOK(t, with("list")...))

	out = runOK(t, with("get", "-s", "example.com")...)
	assert.Equal(t, "Username: Me\nE-Mail: me@example.com\nPassword: myPassword\n", out)

	out = runOK(t, with("remove", "-s", "example.com")...)
	assert.Equal(t, "Removed the site 'example.com'\n", out)

	assert.Equal(t, "No sites found in the database\n", runOK(t, with("list")...))
	assert.Equal(t, "aes-256-gcm", inspectFile(t, db).Algorithm)
}

func TestListSeveralSites(t *testing.T) {
	db := newTestEnv(t)

	runOK(t, "-d", db, "-p", "pw", "create")
	runOK(t, "-d", db, "-p", "pw", "add", "-s", "b.example", "-P", "1")
	runOK(t, "-d", db, "-p", "pw", "add", "-s", "a.example", "-P", "2")

	assert.Equal(t, "b.example,\na.example\n", runOK(t, "-d", db, "-p", "pw", "list"))
}

func TestJSONOutput(t *testing.T) {
	db := newTestEnv(t)

	runOK(t, "-d", db, "-p", "pw", "create")
	runOK(t, "-d", db, "-p", "pw", "add", "-s", "example.com", "-u", "Me", "-P", "secret")

	var list struct {
		Sites []string `json:"sites"`
	}
	require.NoError(t, json.Unmarshal([]byte(runOK(t, "-d", db, "-p", "pw", "--json", "list")), &list))
	assert.Equal(t, []string{"example.com"}, list.Sites)

	var site map[string]string
	require.NoError(t, json.Unmarshal([]byte(runOK(t, "-d", db, "-p", "pw", "--json", "get", "-s", "example.com")), &site))
	assert.Equal(t, map[string]string{
		"site":     "example.com",
		"username": "Me",
		"email":    "",
		"password": "secret",
	}, site)
}

func TestCreateRefusesOverwrite(t *testing.T) {
	db := newTestEnv(t)

	runOK(t, "-d", db, "-p", "pw", "create")
	runOK(t, "-d", db, "-p", "pw", "add", "-s", "example.com", "-P", "x")

	_, err := execute(t, "-d", db, "-p", "pw", "create")
	require.ErrorIs(t, err, store.ErrDatabaseExists)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, errorMessage(err), "--force")

	assert.Equal(t, "example.com\n", runOK(t, "-d", db, "-p", "pw", "list"))

	runOK(t, "-d", db, "-p", "pw", "create", "--force")
	assert.Equal(t, "No sites found in the database\n", runOK(t, "-d", db, "-p", "pw", "list"))
}

func TestAlgorithmKeptOnSave(t *testing.T) {
	db := newTestEnv(t)

	runOK(t, "-d", db, "-p", "pw", "-e", "chacha20", "create")
	runOK(t, "-d", db, "-p", "pw", "add", "-s", "example.com", "-P", "x")
	assert.Equal(t, "chacha20-poly1305", inspectFile(t, db).Algorithm)

	runOK(t, "-d", db, "-p", "pw", "-e", "aes-256-ctr-hmac-sha256", "add", "-s", "other", "-P", "y")
	assert.Equal(t, "aes-256-ctr-hmac-sha256", inspectFile(t, db).Algorithm)
	assert.Equal(t, "example.com,\nother\n", runOK(t, "-d", db, "-p", "pw", "list"))
}

func TestAddNoOverwrite(t *testing.T) {
	db := newTestEnv(t)

	runOK(t, "-d", db, "-p", "pw", "create")
	runOK(t, "-d", db, "-p", "pw", "add", "-s", "example.com", "-P", "first")

	_, err := execute(t, "-d", db, "-p", "pw", "add", "-s", "example.com", "-P", "second", "--no-overwrite")
	require.ErrorIs(t, err, models.ErrSiteExists)
	assert.Equal(t, exitFailure, exitCode(err))

	runOK(t, "-d", db, "-p", "pw", "add", "-s", "example.com", "-P", "second")
	out := runOK(t, "-d", db, "-p", "pw", "get", "-s", "example.com")
	assert.Contains(t, out, "Password: second\n")
}

func TestRekey(t *testing.T) {
	db := newTestEnv(t)

	runOK(t, "-d", db, "-p", "old", "create")
	runOK(t, "-d", db, "-p", "old", "add", "-s", "example.com", "-P", "x")
	before := inspectFile(t, db)

	out := runOK(t, "-d", db, "-p", "old", "-e", "xchacha20", "rekey", "--new-password", "new")
	assert.Equal(t, fmt.Sprintf("Re-encrypted the password database at %s\n", db), out)

	after := inspectFile(t, db)
	assert.Equal(t, "xchacha20-poly1305", after.Algorithm)
	assert.NotEqual(t, before.Salt, after.Salt)

	_, err := execute(t, "-d", db, "-p", "old", "list")
	require.ErrorIs(t, err, models.ErrUnsealFailed)

	assert.Equal(t, "example.com\n", runOK(t, "-d", db, "-p", "new", "list"))
}

func TestRekeyRejectsBlankPassword(t *testing.T) {
	db := newTestEnv(t)
	runOK(t, "-d", db, "-p", "old", "create")

	_, err := execute(t, "-d", db, "-p", "old", "rekey", "--new-password", "  ")
	require.ErrorIs(t, err, models.ErrWeakPassphrase)
	assert.Equal(t, exitInvalidArgs, exitCode(err))

	runOK(t, "-d", db, "-p", "old", "list")
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     func(db string) []string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "wrong password",
			args:     func(db string) []string { return []string{"-d", db, "-p", "wrong", "list"} },
			wantCode: exitUnsealed,
			wantMsg:  "wrong password or damaged database",
		},
		{
			name:     "missing site",
			args:     func(db string) []string { return []string{"-d", db, "-p", "pw", "get", "-s", "nope"} },
			wantCode: exitNotFound,
		},
		{
			name:     "remove missing site",
			args:     func(db string) []string { return []string{"-d", db, "-p", "pw", "remove", "-s", "nope"} },
			wantCode: exitNotFound,
		},
		{
			name:     "missing database",
			args:     func(db string) []string { return []string{"-d", db + ".missing", "-p", "pw", "list"} },
			wantCode: exitNotFound,
		},
		{
			name:     "unsupported algorithm",
			args:     func(db string) []string { return []string{"-d", db + ".new", "-p", "pw", "-e", "rot13", "create"} },
			wantCode: exitInvalidArgs,
		},
		{
			name:     "blank password",
			args:     func(db string) []string { return []string{"-d", db + ".new", "-p", "   ", "create"} },
			wantCode: exitInvalidArgs,
		},
		{
			name:     "add without site",
			args:     func(db string) []string { return []string{"-d", db, "-p", "pw", "add", "-P", "x"} },
			wantCode: exitInvalidArgs,
			wantMsg:  "--site is required",
		},
		{
			name:     "site name with invalid UTF-8",
			args:     func(db string) []string { return []string{"-d", db, "-p", "pw", "add", "-s", "a\xff", "-P", "x"} },
			wantCode: exitFailure,
			wantMsg:  "malformed record: name is not valid UTF-8",
		},
		{
			name:     "site password with invalid UTF-8",
			args:     func(db string) []string { return []string{"-d", db, "-p", "pw", "add", "-s", "a", "-P", "pa\xffss"} },
			wantCode: exitFailure,
			wantMsg:  "malformed record: password is not valid UTF-8",
		},
		{
			name:     "get without site",
			args:     func(db string) []string { return []string{"-d", db, "-p", "pw", "get"} },
			wantCode: exitInvalidArgs,
		},
		{
			name:     "unknown flag",
			args:     func(db string) []string { return []string{"-d", db, "list", "--bogus"} },
			wantCode: exitInvalidArgs,
		},
		{
			name:     "unexpected argument",
			args:     func(db string) []string { return []string{"-d", db, "-p", "pw", "list", "extra"} },
			wantCode: exitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestEnv(t)
			runOK(t, "-d", db, "-p", "pw", "create")

			_, err := execute(t, tt.args(db)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitCode(err))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, errorMessage(err))
			}
		})
	}
}

func TestDamagedDatabaseMessage(t *testing.T) {
	db := newTestEnv(t)
	runOK(t, "-d", db, "-p", "pw", "create")

	raw, err := os.ReadFile(db)
	require.NoError(t, err)

	var container map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &container))
	container["ciphertext"] = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	damaged, err := json.Marshal(container)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(db, damaged, 0600))

	_, damagedErr := execute(t, "-d", db, "-p", "pw", "list")
	require.Error(t, damagedErr)

	runOK(t, "-d", db+".2", "-p", "pw", "create")
	_, wrongErr := execute(t, "-d", db+".2", "-p", "bad", "list")
	require.Error(t, wrongErr)

	assert.Equal(t, errorMessage(wrongErr), errorMessage(damagedErr))
	assert.Equal(t, exitUnsealed, exitCode(damagedErr))
	assert.Equal(t, exitUnsealed, exitCode(wrongErr))
}

func TestAlgorithmsCommand(t *testing.T) {
	newTestEnv(t)

	out := runOK(t, "algorithms")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), ",\n")
	assert.Len(t, lines, 7)
	assert.Contains(t, lines, "aes-256-gcm (alias: aes256)")
	assert.Contains(t, lines, "aes-256-cbc-hmac-sha256")

	var parsed struct {
		Algorithms []algorithmInfo `json:"algorithms"`
	}
	require.NoError(t, json.Unmarshal([]byte(runOK(t, "--json", "algorithms")), &parsed))
	require.Len(t, parsed.Algorithms, 7)

	var defaults []string
	for _, info := range parsed.Algorithms {
		if info.Default {
			defaults = append(defaults, info.Name)
		}
	}
	assert.Equal(t, []string{"aes-256-gcm"}, defaults)
}

func TestConfigInit(t *testing.T) {
	newTestEnv(t)

	out := runOK(t, "config", "init")
	assert.Equal(t, "Wrote an example configuration to passwdmgr.yaml\n", out)

	data, err := os.ReadFile("passwdmgr.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "db.passwddb")
	assert.NotContains(t, string(data), "password:")

	info, err := os.Stat("passwdmgr.yaml")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = execute(t, "config", "init")
	require.Error(t, err)

	runOK(t, "config", "init", "--force")
}

func TestConfigInitReplacesBrokenFile(t *testing.T) {
	db := newTestEnv(t)
	require.NoError(t, os.WriteFile("passwdmgr.yaml", []byte("crypto:\n  algorithm: rot13\n"), 0600))

	_, err := execute(t, "-d", db, "-p", "pw", "create")
	require.ErrorIs(t, err, models.ErrUnsupportedAlgorithm)

	runOK(t, "config", "init", "--force")
	runOK(t, "-d", db, "-p", "pw", "create")
	assert.Equal(t, "aes-256-gcm", inspectFile(t, db).Algorithm)
}

func TestAddWithoutSitePasswordOnEmptyStdin(t *testing.T) {
	if isTerminal(os.Stdin) {
		t.Skip("stdin is a terminal")
	}
	db := newTestEnv(t)

	runOK(t, "-d", db, "-p", "pw", "create")
	out := runOK(t, "-d", db, "-p", "pw", "add", "-s", "example.com", "-u", "Me")
	assert.Equal(t, "Added the site 'example.com'\n", out)

	out = runOK(t, "-d", db, "-p", "pw", "get", "-s", "example.com")
	assert.Equal(t, "Username: Me\nE-Mail: \nPassword: \n", out)
}

func TestConfigFileSelectsDatabase(t *testing.T) {
	db := newTestEnv(t)

	cfgPath := filepath.Join(filepath.Dir(db), "custom.yaml")
	content := fmt.Sprintf("database:\n  path: %s\ncrypto:\n  algorithm: chacha20\n", db)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))

	runOK(t, "--config", cfgPath, "-p", "pw", "create")
	assert.Equal(t, "chacha20-poly1305", inspectFile(t, db).Algorithm)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"unseal", models.ErrUnsealFailed, exitUnsealed},
		{"wrapped unseal", fmt.Errorf("open: %w", models.ErrUnsealFailed), exitUnsealed},
		{"site not found", &models.SiteError{Name: "x", Err: models.ErrNotFound}, exitNotFound},
		{"file not found", fmt.Errorf("read database: %w", storage.ErrFileNotFound), exitNotFound},
		{"unsupported algorithm", &models.AlgorithmError{Algorithm: "rot13"}, exitInvalidArgs},
		{"weak passphrase", models.ErrWeakPassphrase, exitInvalidArgs},
		{"usage", usageErrorf("bad flag %q", "x"), exitInvalidArgs},
		{"malformed", &models.RecordError{Index: -1, Reason: "bad"}, exitFailure},
		{"other", errors.New("disk on fire"), exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestErrorMessageHidesUnsealCause(t *testing.T) {
	wrapped := fmt.Errorf("open %s: %w", "/tmp/db", models.ErrUnsealFailed)
	assert.Equal(t, "wrong password or damaged database", errorMessage(wrapped))
	assert.Equal(t, "plain", errorMessage(errors.New("plain")))
}

func TestReadLine(t *testing.T) {
	stdinSource, stdinReader = nil, nil
	t.Cleanup(func() { stdinSource, stdinReader = nil, nil })

	r := strings.NewReader("first\r\nsecond\nlast")
	for _, want := range []string{"first", "second", "last"} {
		got, err := readLine(r)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := readLine(r)
	assert.Error(t, err)
}
