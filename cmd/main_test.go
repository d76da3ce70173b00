package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Vasu1712/scenyx-present/internal/auth"
	"github.com/Vasu1712/scenyx-present/internal/config"
	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/navigation"
	"github.com/Vasu1712/scenyx-present/internal/protocol"
	"github.com/Vasu1712/scenyx-present/internal/relay"
	"github.com/Vasu1712/scenyx-present/internal/storage/memory"
	"github.com/Vasu1712/scenyx-present/internal/storage/storagetest"
	"github.com/Vasu1712/scenyx-present/internal/ws"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return -1
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleDeckFile(t *testing.T, name string) string {
	raw, err := json.Marshal(storagetest.SampleDeck())
	require.NoError(t, err)
	return writeFile(t, name, raw)
}

func TestRender(t *testing.T) {
	path := writeFile(t, "talk.md", []byte("# One\n---\n# Two"))
	out, err := run(t, "", "render", path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "<section"))

	out, err = run(t, "", "render", "--preview", sampleDeckFile(t, "review.deck"))
	require.NoError(t, err)
	assert.NotContains(t, out, "<section")

	_, err = run(t, "", "render", writeFile(t, "slides.pdf", []byte("%PDF")))
	assert.Equal(t, 3, exitCode(err))
}

func TestValidate(t *testing.T) {
	out, err := run(t, "", "validate", sampleDeckFile(t, "review.deck"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok, 3 slides")

	out, err = run(t, "", "validate", writeFile(t, "talk.md", []byte("# A\nNote: hi\n---\n# B")))
	require.NoError(t, err)
	assert.Contains(t, out, "ok, 2 slides, 1 with notes")

	_, err = run(t, "", "validate", writeFile(t, "bad.deck", []byte(`{"scenes":[]}`)))
	assert.Equal(t, 2, exitCode(err))
}

func TestDiff(t *testing.T) {
	before := sampleDeckFile(t, "a.deck")
	changed := storagetest.SampleDeck()
	changed.Meta.Title = "Renamed"
	raw, err := json.Marshal(changed)
	require.NoError(t, err)
	after := writeFile(t, "b.deck", raw)

	out, err := run(t, "", "diff", before, before, "--exit-code")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run(t, "", "diff", before, after, "--exit-code")
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "@@")
	assert.Contains(t, out, "Renamed")
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "", "new", "--dir", dir, "Quarterly", "Review")
	require.NoError(t, err)
	path := filepath.Join(dir, "quarterly-review.deck")
	assert.Equal(t, path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	d, err := deck.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Review", d.Meta.Title)

	_, err = run(t, "", "new", "--dir", dir, "Quarterly", "Review")
	assert.Equal(t, 3, exitCode(err))
	_, err = run(t, "", "new", "--dir", dir, "--force", "Quarterly", "Review")
	assert.NoError(t, err)

	out, err = run(t, "", "new", "--dir", dir, "--markdown", "Notes")
	require.NoError(t, err)
	data, err = os.ReadFile(strings.TrimSpace(out))
	require.NoError(t, err)
	md, err := deck.ParseMarkdown(string(data))
	require.NoError(t, err)
	assert.Equal(t, 2, md.TotalSlides())
}

func TestHashPassphrase(t *testing.T) {
	out, err := run(t, "letmein\n", "hash-passphrase")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("letmein")))

	_, err = run(t, "", "hash-passphrase")
	assert.Equal(t, 2, exitCode(err))
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := run(t, "", "token")
	assert.Equal(t, 2, exitCode(err))

	t.Setenv("JWT_SECRET", "s3cret")
	out, err := run(t, "", "token", "--subject", "laptop")
	require.NoError(t, err)
	claims, err := auth.New("s3cret", "", time.Hour).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "laptop", claims.Subject)
}

func TestSyncURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:5555":       "ws://localhost:5555/ws?role=remote",
		"https://talk.example.com/":   "wss://talk.example.com/ws?role=remote",
		"wss://talk.example.com/live": "wss://talk.example.com/live/ws?role=remote",
	}
	for in, want := range cases {
		got, err := syncURL(in, relay.RoleRemote)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := syncURL("ftp://x", relay.RoleRemote)
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{config.DriverMemory, config.DriverFile, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			cfg := &config.Config{
				StoreDriver:      driver,
				PresentationsDir: dir,
				SQLitePath:       filepath.Join(dir, "scenyx.db"),
			}
			store, closeStore, err := openStore(ctx, cfg, nil)
			require.NoError(t, err)
			defer closeStore()
			_, err = store.Save(ctx, "Talk", "talk.md", "markdown", []byte("# Hi"))
			require.NoError(t, err)
			list, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}

	_, _, err := openStore(ctx, &config.Config{StoreDriver: "tape"}, nil)
	assert.Error(t, err)
}

func TestRemoteReachesPresenter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.NewPresentationStore(nil)
	hub := ws.NewHub(relay.New(relay.Options{}), store, nil)
	go hub.Run(ctx)

	cfg := &config.Config{Addr: ":5555", AllowedOrigin: "*", ClientRate: 20, ClientBurst: 40}
	srv := httptest.NewServer(newRouter(cfg, store, hub, nil))
	defer srv.Close()

	endpoint, err := syncURL(srv.URL, relay.RolePresenter)
	require.NoError(t, err)
	presenter, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	require.NoError(t, err)
	defer presenter.Close()
	_, _, err = presenter.ReadMessage() // initial snapshot
	require.NoError(t, err)

	require.NoError(t, sendRemote(ctx, srv.URL, navigation.Next))

	presenter.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, frame, err := presenter.ReadMessage()
		require.NoError(t, err)
		event, payload, err := protocol.Decode(frame)
		require.NoError(t, err)
		if event == protocol.Navigate {
			assert.Equal(t, navigation.Next, payload.(protocol.NavigateRequest).Direction)
			return
		}
	}
}
