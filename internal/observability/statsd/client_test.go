package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  surveystats.api  ": "surveystats.api",
		"..foo..":             "foo",
		".":                   "",
		"":                    "",
	}
	for input, want := range tests {
		assert.Equal(t, want, sanitizePrefix(input), "input %q", input)
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/duration ": "job_duration",
		"queue..depth":   "queue.depth",
		"multi  space":   "multi__space",
		"a:b|c":          "a_b_c",
		"":               "",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), "input %q", input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " surveystats "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	assert.Equal(t, "|#env:stage,result:success,service:surveystats", formatTags(global, local))
	assert.Empty(t, formatTags(nil, nil))
}

// pipeClient returns a client without a flush loop and a channel of datagrams seen by the peer.
func pipeClient(t *testing.T, maxPacket int) (*Client, <-chan string) {
	t.Helper()
	clientConn, peerConn := net.Pipe()
	t.Cleanup(func() { _ = peerConn.Close() })

	packets := make(chan string, 16)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := peerConn.Read(buf)
			if err != nil {
				return
			}
			packets <- string(buf[:n])
		}
	}()
	return newClient(clientConn, Config{Prefix: "surveystats", MaxPacketSize: maxPacket}), packets
}

func nextPacket(t *testing.T, packets <-chan string) string {
	t.Helper()
	select {
	case p := <-packets:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for packet")
		return ""
	}
}

func TestClientBuffersUntilFlush(t *testing.T) {
	t.Parallel()
	client, packets := pipeClient(t, DefaultMaxPacketSize)

	client.Count("job.transition", 1, map[string]string{"job_kind": "best5"})
	client.Gauge("queue.depth", 2.5, nil)
	client.Timing("job.duration", 1500*time.Microsecond, nil)

	select {
	case p := <-packets:
		t.Fatalf("unexpected packet before flush: %q", p)
	case <-time.After(20 * time.Millisecond):
	}

	client.Flush()
	assert.Equal(t,
		"surveystats.job.transition:1|c|#job_kind:best5\n"+
			"surveystats.queue.depth:2.5|g\n"+
			"surveystats.job.duration:1.5|ms",
		nextPacket(t, packets))
}

func TestClientSplitsAtPacketSize(t *testing.T) {
	t.Parallel()
	// "surveystats.a:1|c" is 17 bytes; two of them plus a newline do not fit in 30.
	client, packets := pipeClient(t, 30)

	client.Count("a", 1, nil)
	client.Count("b", 1, nil)
	assert.Equal(t, "surveystats.a:1|c", nextPacket(t, packets))

	client.Flush()
	assert.Equal(t, "surveystats.b:1|c", nextPacket(t, packets))
}

func TestClientSendsOversizedLineAlone(t *testing.T) {
	t.Parallel()
	client, packets := pipeClient(t, 10)

	client.Count("job.transition", 1, nil)
	assert.Equal(t, "surveystats.job.transition:1|c", nextPacket(t, packets))
}

func TestClientCloseFlushesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	client, packets := pipeClient(t, DefaultMaxPacketSize)
	require.True(t, client.Enabled())

	client.Count("queue.depth", 3, nil)
	require.NoError(t, client.Close())
	assert.Equal(t, "surveystats.queue.depth:3|c", nextPacket(t, packets))

	assert.False(t, client.Enabled())
	require.NoError(t, client.Close())
	client.Count("dropped", 1, nil)
	client.Flush()
}

func TestNilClientIsInert(t *testing.T) {
	t.Parallel()
	var c *Client
	assert.False(t, c.Enabled())
	c.Count("ignored", 1, nil)
	c.Flush()
	require.NoError(t, c.Close())
}

func TestNewClientUDPFlushLoop(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	client, err := NewClient(Config{
		Enabled:       true,
		Address:       pc.LocalAddr().String(),
		GlobalTags:    map[string]string{"env": "test"},
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Count("job.transition", 1, nil)

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "surveystats.job.transition:1|c|#env:test", string(buf[:n]))
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.Equal(t, DefaultPrefix, client.prefix)
	client.Count("job.transition", 1, nil)
	require.NoError(t, client.Close())
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.ErrorContains(t, err, "statsd dial")
}
