package testing

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"strings"
	"sync"
	stdtesting "testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// Prompt is what the fake CLI prints when it is ready for a command.
const Prompt = "\x1b[0m<OLT-Mock#\x1b[0m "

// FakeOLT is an in-process SSH server that answers "info", "show all" and
// "exit" the way the appliance CLI does. It only opens a shell session; exec
// requests are rejected.
type FakeOLT struct {
	User     string
	Password string
	Payload  string

	keyboardInteractive bool
	sendExitStatus      bool
	exitStatus          uint32
	stderr              string
	showAllDelay        time.Duration

	listener net.Listener
	hostKey  ssh.Signer
	config   *ssh.ServerConfig
	done     chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions int
	commands []string
}

// Option configures a FakeOLT.
type Option func(*FakeOLT)

// WithPassword sets the password the server accepts for user admin.
func WithPassword(pw string) Option {
	return func(f *FakeOLT) { f.Password = pw }
}

// WithKeyboardInteractive makes the server offer keyboard-interactive
// instead of password authentication.
func WithKeyboardInteractive() Option {
	return func(f *FakeOLT) { f.keyboardInteractive = true }
}

// WithoutExitStatus closes the channel after "exit" without sending an
// exit-status request.
func WithoutExitStatus() Option {
	return func(f *FakeOLT) { f.sendExitStatus = false }
}

// WithExitStatus sets the status sent when the session ends.
func WithExitStatus(code uint32) Option {
	return func(f *FakeOLT) { f.exitStatus = code }
}

// WithStderr writes s to the session's stderr before the first prompt.
func WithStderr(s string) Option {
	return func(f *FakeOLT) { f.stderr = s }
}

// WithShowAllDelay stalls "show all" for d, or until the server closes.
func WithShowAllDelay(d time.Duration) Option {
	return func(f *FakeOLT) { f.showAllDelay = d }
}

// NewFakeOLT starts a server on 127.0.0.1 with a random port that prints
// payload for "show all". It is closed when the test ends.
func NewFakeOLT(t stdtesting.TB, payload string, opts ...Option) *FakeOLT {
	t.Helper()

	f := &FakeOLT{
		User:           "admin",
		Password:       "password",
		Payload:        payload,
		sendExitStatus: true,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	f.hostKey, err = ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}
	f.config = f.serverConfig()

	f.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	f.wg.Add(1)
	go f.serve()
	t.Cleanup(f.Close)
	return f
}

// Addr returns the host:port the server listens on.
func (f *FakeOLT) Addr() string {
	return f.listener.Addr().String()
}

// HostKey returns the server's public host key.
func (f *FakeOLT) HostKey() ssh.PublicKey {
	return f.hostKey.PublicKey()
}

// Sessions returns how many shell sessions the server has started.
func (f *FakeOLT) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

// Commands returns every command line received, across all sessions.
func (f *FakeOLT) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Close stops the listener and waits for open sessions to finish.
func (f *FakeOLT) Close() {
	select {
	case <-f.done:
		return
	default:
	}
	close(f.done)
	_ = f.listener.Close()
	f.wg.Wait()
}

func (f *FakeOLT) serverConfig() *ssh.ServerConfig {
	cfg := &ssh.ServerConfig{}
	check := func(user, pw string) error {
		if user == f.User && pw == f.Password {
			return nil
		}
		return fmt.Errorf("password rejected for %q", user)
	}

	if f.keyboardInteractive {
		cfg.KeyboardInteractiveCallback = func(c ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge("", "", []string{"Password: "}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) != 1 {
				return nil, fmt.Errorf("expected one answer, got %d", len(answers))
			}
			return nil, check(c.User(), answers[0])
		}
	} else {
		cfg.PasswordCallback = func(c ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			return nil, check(c.User(), string(pw))
		}
	}
	cfg.AddHostKey(f.hostKey)
	return cfg
}

func (f *FakeOLT) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.handleConn(conn)
		}()
	}
}

func (f *FakeOLT) handleConn(nConn net.Conn) {
	defer nConn.Close()

	// Unblock reads on this connection when the server shuts down
	go func() {
		<-f.done
		_ = nConn.Close()
	}()

	conn, chans, reqs, err := ssh.NewServerConn(nConn, f.config)
	if err != nil {
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.handleSession(ch, chReqs)
		}()
	}
}

func (f *FakeOLT) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()

	if !waitForShell(reqs) {
		return
	}
	go func() {
		for req := range reqs {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}()

	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()

	f.runCLI(ch)
}

// waitForShell answers session requests until the client asks for a shell.
func waitForShell(reqs <-chan *ssh.Request) bool {
	for req := range reqs {
		switch req.Type {
		case "shell":
			_ = req.Reply(true, nil)
			return true
		case "pty-req", "env":
			_ = req.Reply(true, nil)
		default:
			_ = req.Reply(false, nil)
		}
	}
	return false
}

func (f *FakeOLT) runCLI(ch ssh.Channel) {
	if f.stderr != "" {
		_, _ = ch.Stderr().Write([]byte(f.stderr))
	}
	write := func(s string) { _, _ = ch.Write([]byte(s)) }
	write(Prompt)

	scanner := bufio.NewScanner(ch)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" {
			continue
		}
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()

		switch cmd {
		case "info":
			write(cmd + "\n" + Prompt)
		case "show all":
			if f.showAllDelay > 0 {
				select {
				case <-time.After(f.showAllDelay):
				case <-f.done:
					return
				}
			}
			write("\x1b[0m" + f.Payload + "\n" + Prompt)
		case "exit", "quit", "logout":
			write("Goodbye\n")
			f.finish(ch)
			return
		default:
			write("Unknown command: " + cmd + "\n" + Prompt)
		}
	}

	// Client closed stdin without saying exit
	f.finish(ch)
}

func (f *FakeOLT) finish(ch ssh.Channel) {
	if !f.sendExitStatus {
		return
	}
	status := struct{ Status uint32 }{f.exitStatus}
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&status))
}
