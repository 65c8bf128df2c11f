package transport

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/secret"
	"github.com/rileyhilliard/oltstat/pkg/sshutil"
	sshtest "github.com/rileyhilliard/oltstat/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "System": {"Uptime": "12345", "Temperature": "41.5", "Alarm": false},
  "PON": [{"Name": "pon2", "Status": "up"}, {"Name": "pon1", "Status": "down"}],
  "ONU": [{"SN": "CAMB0002", "Rx-Power": "-21.40"}]
}`

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, host string, cred *secret.Credential, script string) (Result, error)

func (f runnerFunc) Run(ctx context.Context, host string, cred *secret.Credential, script string) (Result, error) {
	return f(ctx, host, cred, script)
}

func staticRunner(res Result, err error) Runner {
	return runnerFunc(func(context.Context, string, *secret.Credential, string) (Result, error) {
		return res, err
	})
}

func request(host, password string) Request {
	return Request{Host: host, Credential: secret.NewCredential(password)}
}

func TestFetchAll_DecodesAndCoerces(t *testing.T) {
	transcript := "\x1b[0m<OLT#\x1b[0m info\n<OLT#\x1b[0m show all\n" + samplePayload + "\n<OLT# exit\nGoodbye\n"
	var gotScript string
	runner := runnerFunc(func(_ context.Context, host string, _ *secret.Credential, script string) (Result, error) {
		gotScript = script
		assert.Equal(t, "10.0.0.5", host)
		return Result{Output: transcript}, nil
	})

	doc, err := New(runner, nil).FetchAll(context.Background(), request("10.0.0.5", "pw"))
	require.NoError(t, err)
	assert.Equal(t, Script, gotScript)

	m := doc.(map[string]any)
	system := m["System"].(map[string]any)
	assert.Equal(t, int64(12345), system["Uptime"])
	assert.Equal(t, 41.5, system["Temperature"])
	assert.Equal(t, int64(0), system["Alarm"])
	assert.Equal(t, -21.4, m["ONU"].([]any)[0].(map[string]any)["Rx-Power"])
	assert.Equal(t, "pon2", m["PON"].([]any)[0].(map[string]any)["Name"], "fetch does not reorder arrays")
}

func TestFetchAll_Failures(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		code string
		msg  string
	}{
		{
			name: "auth",
			res:  Result{Output: "admin@10.0.0.5: Permission denied (password).\n", ExitCode: 5},
			code: errors.ErrConnection,
			msg:  "SSH error: authentication failed (check password for admin@10.0.0.5)",
		},
		{
			name: "refused",
			res:  Result{Detail: "dial tcp 10.0.0.5:22: connect: Connection refused", ExitCode: 255},
			code: errors.ErrConnection,
			msg:  "SSH error: connection refused by 10.0.0.5 (SSH not running or port blocked?)",
		},
		{
			name: "several hints",
			res:  Result{Output: "No route to host\nHost key verification failed.\n", ExitCode: 255},
			code: errors.ErrConnection,
			msg: "SSH error: cannot reach 10.0.0.5 (check IP address and network connectivity); " +
				"host key verification failed for 10.0.0.5",
		},
		{
			name: "timed out connecting",
			res:  Result{Output: "ssh: connect to host 10.0.0.5 port 22: Connection timed out", ExitCode: 255},
			code: errors.ErrConnection,
			msg:  "SSH error: connection to 10.0.0.5 timed out (firewall blocking?)",
		},
		{
			name: "no hint",
			res:  Result{Output: "something odd\nhappened", ExitCode: 3},
			code: errors.ErrConnection,
			msg:  "SSH failed with return code 3: something odd happened",
		},
		{
			name: "no hint no output",
			res:  Result{ExitCode: 1},
			code: errors.ErrConnection,
			msg:  "SSH failed with return code 1: (no output)",
		},
		{
			name: "empty output",
			res:  Result{Output: "  \n"},
			code: errors.ErrConnection,
			msg:  "SSH to 10.0.0.5 succeeded but returned no output",
		},
		{
			name: "no json",
			res:  Result{Output: "<OLT# show all\nUnknown command\n"},
			code: errors.ErrExtract,
			msg:  "no JSON found in OLT output",
		},
		{
			name: "broken json",
			res:  Result{Output: `{"System": {"Uptime": 1}, "PON": [}`},
			code: errors.ErrExtract,
			msg:  "doesn't parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(staticRunner(tt.res, nil), nil).FetchAll(context.Background(), request("10.0.0.5", "hunter2"))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "code: %v", err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.NotContains(t, err.Error(), "hunter2")
		})
	}
}

func TestFetchAll_LongOutputPreviewIsBounded(t *testing.T) {
	out := strings.Repeat("x", 1000)
	_, err := New(staticRunner(Result{Output: out, ExitCode: 9}, nil), nil).
		FetchAll(context.Background(), request("h", "pw"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), strings.Repeat("x", 200)+"...")
	assert.NotContains(t, err.Error(), strings.Repeat("x", 201))
}

func TestFetchAll_Timeout(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, _ string, _ *secret.Credential, _ string) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	})
	tr := New(runner, nil)
	tr.Timeout = 50 * time.Millisecond

	_, err := tr.FetchAll(context.Background(), request("10.0.0.5", "pw"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnection))
	assert.Contains(t, err.Error(), "SSH connection to 10.0.0.5 timed out after 0 seconds")
}

func TestFetchAll_DefaultTimeoutMessage(t *testing.T) {
	runner := staticRunner(Result{}, context.DeadlineExceeded)
	_, err := New(runner, nil).FetchAll(context.Background(), request("olt1", "pw"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH connection to olt1 timed out after 30 seconds")
}

func TestFetchAll_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := runnerFunc(func(ctx context.Context, _ string, _ *secret.Credential, _ string) (Result, error) {
		return Result{}, ctx.Err()
	})
	_, err := New(runner, nil).FetchAll(ctx, request("h", "pw"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAll_RunnerStartError(t *testing.T) {
	_, err := New(staticRunner(Result{}, stderrors.New("exec: \"sshpass\": executable file not found in $PATH")), nil).
		FetchAll(context.Background(), request("h", "pw"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnection))
	assert.Contains(t, err.Error(), "SSH command failed: exec:")
}

func TestFetchAll_LogsOnlyRedactedPassword(t *testing.T) {
	srv := sshtest.NewFakeOLT(t, samplePayload, sshtest.WithPassword("hunter2"))
	log := logger.NewBufferLogger()

	runner := NewNativeRunner(log)
	runner.SSHConfigPath = filepath.Join(t.TempDir(), "ssh_config")

	_, err := New(runner, log).FetchAll(context.Background(), request(srv.Addr(), "hunter2"))
	require.NoError(t, err)
	assert.True(t, log.Contains("h*****2"))
	assert.False(t, log.Contains("hunter2"))
}

func TestNativeRunner_FakeOLT(t *testing.T) {
	srv := sshtest.NewFakeOLT(t, samplePayload, sshtest.WithPassword("s3cret"))
	runner := NewNativeRunner(nil)
	runner.SSHConfigPath = filepath.Join(t.TempDir(), "ssh_config")

	doc, err := New(runner, nil).FetchAll(context.Background(), request(srv.Addr(), "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, int64(12345), doc.(map[string]any)["System"].(map[string]any)["Uptime"])
	assert.Equal(t, []string{"info", "show all", "exit"}, srv.Commands())
}

func TestNativeRunner_WrongPassword(t *testing.T) {
	srv := sshtest.NewFakeOLT(t, samplePayload, sshtest.WithPassword("right"))
	runner := NewNativeRunner(nil)
	runner.SSHConfigPath = filepath.Join(t.TempDir(), "ssh_config")

	_, err := New(runner, nil).FetchAll(context.Background(), request(srv.Addr(), "wrong"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnection))
	assert.Contains(t, err.Error(), "SSH error: authentication failed (check password for admin@"+srv.Addr()+")")
}

func TestNativeRunner_WrongAccountNamedInHint(t *testing.T) {
	srv := sshtest.NewFakeOLT(t, samplePayload)
	runner := NewNativeRunner(nil)
	runner.SSHConfigPath = filepath.Join(t.TempDir(), "ssh_config")
	runner.User = "ops"

	_, err := New(runner, nil).FetchAll(context.Background(), request(srv.Addr(), "password"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check password for ops@"+srv.Addr())
}

func TestNativeRunner_NoExitStatusCountsAsSuccess(t *testing.T) {
	srv := sshtest.NewFakeOLT(t, samplePayload, sshtest.WithoutExitStatus())
	runner := NewNativeRunner(nil)
	runner.SSHConfigPath = filepath.Join(t.TempDir(), "ssh_config")

	_, err := New(runner, nil).FetchAll(context.Background(), request(srv.Addr(), "password"))
	require.NoError(t, err)
}

func TestNativeRunner_StderrFollowsStdout(t *testing.T) {
	mock := sshtest.NewMockClient("10.0.0.5:22")
	mock.SetResponse(sshtest.CommandResponse{Stdout: []byte("out\n"), Stderr: []byte("err\n")})

	runner := NewNativeRunner(nil).WithDialer(func(context.Context, string, sshutil.Options) (sshutil.ScriptClient, error) {
		return mock, nil
	})

	res, err := runner.Run(context.Background(), "10.0.0.5", secret.NewCredential("pw"), Script)
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", res.Output)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{Script}, mock.Scripts())
	assert.True(t, mock.Closed())
}

func TestNativeRunner_PasswordComesFromCredential(t *testing.T) {
	var got string
	runner := NewNativeRunner(nil).WithDialer(func(_ context.Context, _ string, opts sshutil.Options) (sshutil.ScriptClient, error) {
		pw, err := opts.Password()
		require.NoError(t, err)
		got = pw
		assert.Equal(t, DefaultUser, opts.User)
		return sshtest.NewMockClient("h:22"), nil
	})

	_, err := runner.Run(context.Background(), "h", secret.NewCredential("s3cret"), Script)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}

func TestNativeRunner_DialFailureBecomesResult(t *testing.T) {
	runner := NewNativeRunner(nil).WithDialer(func(context.Context, string, sshutil.Options) (sshutil.ScriptClient, error) {
		return nil, errors.WrapWithCode(stderrors.New("connect: connection refused"), errors.ErrConnection,
			"Can't reach 'h' at h:22", "Is SSH enabled on the OLT?")
	})

	res, err := runner.Run(context.Background(), "h", secret.NewCredential("pw"), Script)
	require.NoError(t, err)
	assert.Equal(t, 255, res.ExitCode)
	assert.Contains(t, res.Detail, "connection refused")
}

func TestNativeRunner_Hang(t *testing.T) {
	mock := sshtest.NewMockClient("h:22")
	mock.SetResponse(sshtest.CommandResponse{Hang: true})
	runner := NewNativeRunner(nil).WithDialer(func(context.Context, string, sshutil.Options) (sshutil.ScriptClient, error) {
		return mock, nil
	})

	tr := New(runner, nil)
	tr.Timeout = 50 * time.Millisecond
	_, err := tr.FetchAll(context.Background(), request("h", "pw"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH connection to h timed out")
}

func TestSSHPassRunner_Args(t *testing.T) {
	r := NewSSHPassRunner(nil)

	assert.Equal(t, []string{
		"sshpass", "-e", "ssh",
		"-o", "PreferredAuthentications=password",
		"-o", "PubkeyAuthentication=no",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "ConnectTimeout=10",
		"-T", "admin@10.0.0.5",
	}, r.Args("10.0.0.5"))

	args := r.Args("[fe80::1]:2222")
	assert.Equal(t, []string{"-p", "2222", "admin@fe80::1"}, args[len(args)-3:])

	args = r.Args("[fe80::1]")
	assert.Equal(t, "admin@fe80::1", args[len(args)-1])
}

func TestSSHPassRunner_PasswordOnlyInEnvironment(t *testing.T) {
	r := NewSSHPassRunner(nil)
	cmd := r.command(context.Background(), "10.0.0.5", "hunter2", Script)

	for _, arg := range cmd.Args {
		assert.NotContains(t, arg, "hunter2")
	}
	assert.Contains(t, cmd.Env, "SSHPASS=hunter2")
}

// fakeSSHPass writes a shell script standing in for sshpass.
func fakeSSHPass(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "sshpass")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestSSHPassRunner_Run(t *testing.T) {
	bin := fakeSSHPass(t, `cat >/dev/null
echo '<OLT# show all'
echo '{"System": {"Uptime": "7"}}'
echo "pw=$SSHPASS" >&2`)

	log := logger.NewBufferLogger()
	r := NewSSHPassRunner(log)
	r.Binary = bin

	res, err := r.Run(context.Background(), "10.0.0.5", secret.NewCredential("hunter2"), Script)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, `{"System": {"Uptime": "7"}}`)
	assert.Contains(t, res.Output, "pw=hunter2", "password reaches the child through SSHPASS")
	assert.True(t, log.Contains("SSHPASS=h*****2"))
	assert.False(t, log.Contains("hunter2"))
}

func TestSSHPassRunner_NonZeroExit(t *testing.T) {
	bin := fakeSSHPass(t, `cat >/dev/null
echo 'admin@10.0.0.5: Permission denied (password).' >&2
exit 5`)

	r := NewSSHPassRunner(nil)
	r.Binary = bin

	_, err := New(r, nil).FetchAll(context.Background(), request("10.0.0.5", "pw"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH error: authentication failed (check password for admin@10.0.0.5)")
}

func TestSSHPassRunner_AuthHintUsesConfiguredUser(t *testing.T) {
	bin := fakeSSHPass(t, `cat >/dev/null
echo 'ops@10.0.0.5: Permission denied (password).' >&2
exit 5`)

	r := NewSSHPassRunner(nil)
	r.Binary = bin
	r.User = "ops"

	_, err := New(r, nil).FetchAll(context.Background(), request("10.0.0.5", "pw"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check password for ops@10.0.0.5")
	assert.NotContains(t, err.Error(), "admin@")
}

func TestSSHPassRunner_OrphanedChildDoesNotBlock(t *testing.T) {
	bin := fakeSSHPass(t, `cat >/dev/null
sleep 30 &
sleep 30`)

	r := NewSSHPassRunner(nil)
	r.Binary = bin
	assert.Equal(t, waitDelay, r.command(context.Background(), "h", "pw", Script).WaitDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "h", secret.NewCredential("pw"), Script)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second, "Run must not wait for the orphaned child")
}

func TestSSHPassRunner_MissingBinary(t *testing.T) {
	r := NewSSHPassRunner(nil)
	r.Binary = filepath.Join(t.TempDir(), "no-such-sshpass")

	_, err := r.Run(context.Background(), "h", secret.NewCredential("pw"), Script)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnection))
	assert.Contains(t, err.Error(), "--transport native")
}

func TestNewRunner(t *testing.T) {
	r, err := NewRunner(Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &NativeRunner{}, r)

	r, err = NewRunner(Options{Kind: KindSSHPass, User: "ops", ConnectTimeout: 3 * time.Second}, nil)
	require.NoError(t, err)
	sp := r.(*SSHPassRunner)
	assert.Equal(t, "ops", sp.User)
	assert.Contains(t, sp.Args("h"), "ConnectTimeout=3")

	_, err = NewRunner(Options{Kind: "telnet"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestHints(t *testing.T) {
	assert.Empty(t, Hints("", "h", "all good"))
	assert.Len(t, Hints("", "h", "PERMISSION DENIED and Connection Refused"), 2)
	assert.Equal(t, []string{"host key verification failed for h"},
		Hints("", "h", "knownhosts: key is unknown"))
}

func TestHints_NameTheLoginAccount(t *testing.T) {
	tests := []struct {
		name string
		user string
		want string
	}{
		{"default account", "", "authentication failed (check password for admin@h)"},
		{"configured account", "ops", "authentication failed (check password for ops@h)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, Hints(tt.user, "h", "Permission denied (password)."))
		})
	}
}
