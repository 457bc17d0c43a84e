package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/pongdash/internal/client/iocli"
	"github.com/iudanet/pongdash/internal/devserver"
)

// testEnv dev server с демо-данными и каталог для локальных баз
type testEnv struct {
	apiURL string
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := devserver.DefaultConfig()
	cfg.Secret = []byte("cli-test-secret")
	cfg.BcryptCost = bcrypt.MinCost

	srv, err := devserver.New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Seed(context.Background()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	return &testEnv{apiURL: ts.URL + devserver.APIPrefix, dir: t.TempDir()}
}

func noEnv(string) (string, bool) { return "", false }

// run выполняет одну команду, как это делает main, и возвращает stdout
func (e *testEnv) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	c := New(iocli.New(strings.NewReader(input), &out), &errOut, noEnv, BuildInfo{
		Version:   "1.2.3",
		BuildDate: "2026-01-01",
		GitCommit: "abc123",
	})

	args = append(args,
		"--server", e.apiURL,
		"--db", filepath.Join(e.dir, "pongdash.db"),
		"--cache", filepath.Join(e.dir, "cache.db"),
	)
	err := c.Execute(context.Background(), args)
	return out.String(), err
}

func (e *testEnv) login(t *testing.T, extra ...string) {
	t.Helper()
	args := append([]string{"login", "--email", devserver.DemoEmail}, extra...)
	out, err := e.run(t, devserver.DemoPassword+"\n", args...)
	require.NoError(t, err, out)
}

func TestCLI_Version(t *testing.T) {
	var out bytes.Buffer
	c := New(iocli.New(strings.NewReader(""), &out), &bytes.Buffer{}, noEnv, BuildInfo{
		Version:   "1.2.3",
		BuildDate: "2026-01-01",
		GitCommit: "abc123",
	})

	require.NoError(t, c.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "Version:    1.2.3")
	assert.Contains(t, out.String(), "Git Commit: abc123")
}

func TestCLI_Shell_MockLoginRendersDashboardOnce(t *testing.T) {
	env := newTestEnv(t)

	// Со стартовой страницы: кабинет рендерится один раз, история не растет
	out, err := env.run(t, "mock\nback\nquit\n", "shell", "--mock-login")
	require.NoError(t, err, out)

	assert.Contains(t, out, "== Welcome ==")
	assert.Contains(t, out, "✓ Mock session created")
	assert.Contains(t, out, "Welcome back, Mock User!")
	assert.Equal(t, 1, strings.Count(out, "== Dashboard =="))
}

func TestCLI_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// 1. Вход
	out, err := env.run(t, devserver.DemoPassword+"\n", "login", "--email", devserver.DemoEmail)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Logged in as demo")
	assert.Contains(t, out, "Welcome back, demo!")

	// 2. Сессия восстанавливается в следующем процессе
	out, err = env.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:        Authenticated")
	assert.Contains(t, out, "User:          demo")
	assert.Contains(t, out, "Storage:       plain")

	out, err = env.run(t, "", "matches")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 4 match(es)")
	assert.Contains(t, out, "WIN")

	out, err = env.run(t, "", "friends")
	require.NoError(t, err)
	assert.Contains(t, out, "rival")
	assert.Contains(t, out, "newbie")

	out, err = env.run(t, "", "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Record:       3W / 1L")

	// 3. Выход
	out, err = env.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Logout successful!")

	out, err = env.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Not authenticated")
}

func TestCLI_LoginFailure(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "wrong-password\n", "login", "--email", devserver.DemoEmail)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Invalid email or password")

	out, err = env.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Not authenticated")
}

func TestCLI_Register(t *testing.T) {
	env := newTestEnv(t)

	input := "new@example.com\nnewcomer\npassword123\npassword123\n"
	out, err := env.run(t, input, "register")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Account created. Logged in as newcomer")

	// Пароли не совпадают: запрос на сервер не уходит
	input = "other@example.com\nother\npassword123\npassword321\n"
	out, err = env.run(t, input, "register")
	require.Error(t, err)
	assert.Contains(t, out, "✗ Passwords do not match")
}

func TestCLI_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	for _, cmd := range [][]string{{"matches"}, {"friends"}, {"profile"}, {"verify", "123456"}} {
		_, err := env.run(t, "", cmd...)
		assert.ErrorIs(t, err, ErrNotAuthenticated, cmd)
	}
}

func TestCLI_Open(t *testing.T) {
	env := newTestEnv(t)

	// Без сессии защищенный экран уводит на стартовую
	out, err := env.run(t, "", "open", "/profile")
	require.NoError(t, err)
	assert.Contains(t, out, "== Welcome ==")
	assert.NotContains(t, out, "== Profile ==")

	env.login(t)

	// С сессией стартовая уводит в кабинет
	out, err = env.run(t, "", "open", "/")
	require.NoError(t, err)
	assert.Contains(t, out, "== Dashboard ==")

	out, err = env.run(t, "", "open", "/nope")
	require.NoError(t, err)
	assert.Contains(t, out, "/nope does not exist.")
}

func TestCLI_ProfileAndFriends(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, err := env.run(t, "", "verify", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Second factor verified")

	out, err = env.run(t, "", "profile", "name", "rival")
	require.ErrorIs(t, err, ErrNameTaken)
	assert.Contains(t, out, "✗ display name is already taken")

	out, err = env.run(t, "", "profile", "name", "champion")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Display name changed to champion")

	out, err = env.run(t, "", "friends", "add", "no-such-user")
	require.Error(t, err)
	assert.Contains(t, out, "✗")
}

func TestCLI_Shell(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	input := strings.Join([]string{
		"name nope",
		"matches",
		"go /profile",
		"name shelluser",
		"help",
		"quit",
	}, "\n") + "\n"

	out, err := env.run(t, input, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "== Dashboard ==")
	assert.Contains(t, out, `Action "name" is not available on this screen.`)
	assert.Contains(t, out, "Found 4 match(es)")
	assert.Contains(t, out, "== Profile ==")
	assert.Contains(t, out, "✓ Display name changed to shelluser")
	assert.Contains(t, out, "Actions on /profile:")
}

func TestCLI_SealedStorage(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "--passphrase", "correct horse")

	out, err := env.run(t, "", "status", "--passphrase", "correct horse")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:        Authenticated")
	assert.Contains(t, out, "Storage:       sealed with passphrase")
}
