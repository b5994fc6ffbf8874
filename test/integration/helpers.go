package integration

import (
	"bytes"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/client"
)

// safeBuffer wraps bytes.Buffer with a mutex for concurrent read/write.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends data to the buffer (implements io.Writer).
func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.Write(p)
}

// String returns the buffer contents as a string.
func (sb *safeBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.String()
}

// Node is a running ledger node process.
type Node struct {
	t        *testing.T
	cmd      *exec.Cmd     // cmd is the running process
	httpAddr string        // httpAddr is the HTTP API address
	dataDir  string        // dataDir is the node's data directory
	stdout   *safeBuffer   // stdout captures process output
	stderr   *safeBuffer   // stderr captures process errors
	done     chan struct{} // done is closed when the process exits
}

// Client returns a client for the node's API.
func (n *Node) Client() *client.Client {
	return client.NewClient(n.httpAddr)
}

// SnapshotPath returns where the node writes its latest snapshot.
func (n *Node) SnapshotPath() string {
	return filepath.Join(n.dataDir, "snapshots", "latest.snap.zst")
}

// LogContains checks if the node's logs contain a substring.
func (n *Node) LogContains(s string) bool {
	return strings.Contains(n.stdout.String(), s)
}

// Stop sends SIGTERM and waits for a graceful exit, killing the process after a timeout.
func (n *Node) Stop() {
	if n.cmd == nil || n.cmd.Process == nil {
		return
	}

	n.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-n.done:
	case <-time.After(10 * time.Second):
		n.t.Logf("node did not stop, killing\nSTDOUT:\n%s", n.stdout.String())
		n.cmd.Process.Kill()
		<-n.done
	}
}

// StartNode runs the node binary on a free port with the given data directory
// and extra flags, and waits until its API answers.
func StartNode(t *testing.T, binary, dataDir string, extra ...string) *Node {
	t.Helper()

	n := &Node{
		t:        t,
		httpAddr: freeAddr(t),
		dataDir:  dataDir,
		stdout:   &safeBuffer{},
		stderr:   &safeBuffer{},
		done:     make(chan struct{}),
	}

	args := []string{
		"-data", dataDir,
		"-http", n.httpAddr,
		"-key", filepath.Join(dataDir, "node.key"),
		"-snapshot-dir", filepath.Join(dataDir, "snapshots"),
		"-faucet",
	}
	args = append(args, extra...)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("create node dir: %v", err)
	}

	n.cmd = exec.Command(binary, args...)
	n.cmd.Stdout = n.stdout
	n.cmd.Stderr = n.stderr

	if err := n.cmd.Start(); err != nil {
		t.Fatalf("start node: %v", err)
	}

	go func() {
		n.cmd.Wait()
		close(n.done)
	}()

	t.Cleanup(n.Stop)

	n.waitReady(10 * time.Second)

	return n
}

// waitReady polls /health until it answers or the timeout expires.
func (n *Node) waitReady(timeout time.Duration) {
	n.t.Helper()

	c := n.Client()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		select {
		case <-n.done:
			n.t.Fatalf("node exited during startup:\nSTDOUT:\n%s\nSTDERR:\n%s", n.stdout.String(), n.stderr.String())
		default:
		}

		if err := c.Health(); err == nil {
			return
		}

		time.Sleep(100 * time.Millisecond)
	}

	n.t.Fatalf("node not ready after %v:\nSTDOUT:\n%s\nSTDERR:\n%s", timeout, n.stdout.String(), n.stderr.String())
}

// freeAddr returns a loopback address with a currently unused port.
func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()

	return l.Addr().String()
}

// buildBinary compiles the node binary.
// Uses a unique temp file per test to avoid races when tests run in parallel.
func buildBinary(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	binary := filepath.Join(t.TempDir(), "ledger-node")

	cmd := exec.Command("go", "build", "-o", binary, "./cmd/node")
	cmd.Dir = getProjectRoot(t)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, output)
	}

	return binary
}

// getProjectRoot returns the project root directory (containing go.mod).
func getProjectRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working dir: %v", err)
	}

	dir := wd
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find project root from %s", wd)

	return ""
}

// fundAndStake onboards w, funds it from the faucet and stakes amount.
func fundAndStake(t *testing.T, c *client.Client, w *client.Wallet, amount uint64) {
	t.Helper()

	if err := w.Onboard(c); err != nil {
		t.Fatalf("onboard: %v", err)
	}

	if _, err := c.Faucet(w.Identity(), amount); err != nil {
		t.Fatalf("faucet: %v", err)
	}

	if _, err := w.Stake(c, amount); err != nil {
		t.Fatalf("stake: %v", err)
	}
}

func mustEqual[T comparable](t *testing.T, name string, got, want T) {
	t.Helper()

	if got != want {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}
