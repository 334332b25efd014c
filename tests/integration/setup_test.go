package integration

import (
	"path/filepath"
	"testing"
	"time"

	"financas/internal/api"
	"financas/internal/ledger"
	"financas/internal/logger"
	"financas/internal/session"
	"financas/internal/store"
	"financas/internal/testutil"
)

// testApp is the full client stack wired the way the application wires
// it: persisted store, session manager, API client with the
// unauthorized hook, and the ledger store on top.
type testApp struct {
	Store   *store.SessionStore
	Session *session.Manager
	Client  *api.Client
	Ledger  *ledger.Store
}

func init() {
	logger.Init("test")
}

// startApp assembles the stack against the given fake collaborator,
// persisting session state at statePath. Restore runs as it would at
// process start.
func startApp(t *testing.T, srv *testutil.Server, statePath string) *testApp {
	t.Helper()

	st, err := store.Open(statePath)
	if err != nil {
		t.Fatalf("failed to open session store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	manager := session.NewManager(st)
	client := api.New(srv.URL, 5*time.Second, manager)
	client.OnUnauthorized(manager.Expire)
	manager.SetAuthenticator(client)

	if err := manager.Restore(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}

	return &testApp{
		Store:   st,
		Session: manager,
		Client:  client,
		Ledger:  ledger.NewStore(client),
	}
}

// statePath returns a session database path inside the test's temp dir.
func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.db")
}
