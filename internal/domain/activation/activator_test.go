package activation

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
	"github.com/anon-safe/safe-launcher/internal/testutil"
)

var editorRow = types.SharedAppConfig{
	AppID:          "app_editor",
	AppName:        "editor",
	ReferenceCount: 1,
	AppRootDirKey:  "root-key",
	DriveAccess:    true,
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t,
		[]string{"--launcher", "tcp:127.0.0.1:5000:abc123"},
		CommandLine("127.0.0.1:5000", "abc123"))
}

func TestActivateAnnouncesThenSpawns(t *testing.T) {
	notifier := testutil.NewMockNotifier(t, "127.0.0.1:5000")
	spawner := &testutil.RecordingSpawner{}
	a := New(notifier, spawner, 16, logging.NewNop())

	require.NoError(t, a.Activate(context.Background(), editorRow, "/apps/editor", "127.0.0.1:5000"))

	notifier.AssertCalled(t, "AppActivated", mock.Anything, mock.MatchedBy(func(ticket types.ActivationTicket) bool {
		return ticket.AppID == editorRow.AppID &&
			ticket.AppRootDirKey == "root-key" &&
			ticket.DriveAccess &&
			len(ticket.Nonce) == 16
	}))

	calls := spawner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/apps/editor", calls[0].Path)
	require.Len(t, calls[0].Args, 2)
	assert.Equal(t, LauncherFlag, calls[0].Args[0])

	ticket := notifier.Calls[0].Arguments.Get(1).(types.ActivationTicket)
	assert.Equal(t, "tcp:127.0.0.1:5000:"+ticket.Nonce, calls[0].Args[1])
}

func TestActivateUsesFreshNonces(t *testing.T) {
	notifier := testutil.NewMockNotifier(t, "e")
	spawner := &testutil.RecordingSpawner{}
	a := New(notifier, spawner, 0, logging.NewNop())

	require.NoError(t, a.Activate(context.Background(), editorRow, "/apps/editor", "e"))
	require.NoError(t, a.Activate(context.Background(), editorRow, "/apps/editor", "e"))

	calls := spawner.Calls()
	require.Len(t, calls, 2)
	assert.NotEqual(t, calls[0].Args[1], calls[1].Args[1])
	assert.Len(t, strings.TrimPrefix(calls[0].Args[1], "tcp:e:"), DefaultNonceLength)
}

func TestActivateAnnounceFailureSkipsSpawn(t *testing.T) {
	notifier := new(testutil.MockNotifier)
	notifier.On("AppActivated", mock.Anything, mock.Anything).Return(errors.New("ipc down"))
	spawner := &testutil.RecordingSpawner{}
	a := New(notifier, spawner, 8, logging.NewNop())

	err := a.Activate(context.Background(), editorRow, "/apps/editor", "e")
	assert.Error(t, err)
	assert.Empty(t, spawner.Calls())
}

func TestActivateSpawnFailure(t *testing.T) {
	notifier := testutil.NewMockNotifier(t, "e")
	spawner := &testutil.RecordingSpawner{Err: errors.New("exec format error")}
	a := New(notifier, spawner, 8, logging.NewNop())

	err := a.Activate(context.Background(), editorRow, "/apps/editor", "e")
	assert.ErrorContains(t, err, "exec format error")
}

func TestResolve(t *testing.T) {
	rows := []types.SharedAppConfig{editorRow}
	paths := map[id.AppID]string{"app_editor": "/apps/editor", "app_local_only": "/apps/x"}
	lookup := func(appID id.AppID) (string, bool) {
		p, ok := paths[appID]
		return p, ok
	}

	row, path, ok := Resolve(rows, lookup, "app_editor")
	assert.True(t, ok)
	assert.Equal(t, editorRow, row)
	assert.Equal(t, "/apps/editor", path)

	_, _, ok = Resolve(rows, lookup, "app_local_only")
	assert.False(t, ok, "no shared row")

	_, _, ok = Resolve(append(rows, types.SharedAppConfig{AppID: "app_remote"}), lookup, "app_remote")
	assert.False(t, ok, "no local path")
}

func TestExecSpawner(t *testing.T) {
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}

	s := NewExecSpawner(logging.NewNop())
	assert.NoError(t, s.Spawn(path, CommandLine("127.0.0.1:1", "nonce")))

	assert.Error(t, s.Spawn("/definitely/not/here", nil))
}
