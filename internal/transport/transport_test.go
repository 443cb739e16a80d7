package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hibikido/internal/controller"
)

type fakeDispatcher struct {
	invokeReply string
	invokeErr   error
	stats       controller.StatsResult
}

func (f *fakeDispatcher) Invoke(ctx context.Context, text string) (string, error) {
	return f.invokeReply, f.invokeErr
}
func (f *fakeDispatcher) AddRecording(ctx context.Context, path, description string, tags []string) (string, error) {
	return "added recording: " + path, nil
}
func (f *fakeDispatcher) AddSegment(ctx context.Context, path, description string, start, end float64, tags []string) (string, error) {
	return "added segment", nil
}
func (f *fakeDispatcher) AddEffect(path, description string) (string, error) { return "added effect", nil }
func (f *fakeDispatcher) AddPreset(ctx context.Context, description, effectPath string, parameters []float64) (string, error) {
	return "added preset", nil
}
func (f *fakeDispatcher) RebuildIndex(ctx context.Context) (string, error) { return "rebuilt", nil }
func (f *fakeDispatcher) Stats() controller.StatsResult                    { return f.stats }
func (f *fakeDispatcher) ListSegments(n int) []controller.SegmentSummary {
	return []controller.SegmentSummary{{ID: 1, Description: "a"}}
}
func (f *fakeDispatcher) GetSegmentField(id int, fieldPath string) (any, error) { return 0.5, nil }
func (f *fakeDispatcher) GenerateDescription(ctx context.Context, collection string, id int, force bool) (string, error) {
	return "desc", nil
}
func (f *fakeDispatcher) Stop() error { return nil }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data, err := encode("invoke", "atmospheric")
	require.NoError(t, err)

	m, err := decode(data)
	require.NoError(t, err)
	require.Equal(t, "invoke", m.Address)
	s, err := m.string(0)
	require.NoError(t, err)
	require.Equal(t, "atmospheric", s)
}

func TestDispatchInvoke(t *testing.T) {
	d := &fakeDispatcher{invokeReply: "invoked: 2 resonances queued"}
	data, _ := encode("invoke", "atmospheric")
	m, _ := decode(data)

	reply, err := dispatch(context.Background(), d, m, nil)
	require.NoError(t, err)
	require.Equal(t, "invoked: 2 resonances queued", reply)
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := &fakeDispatcher{}
	data, _ := encode("not_a_command")
	m, _ := decode(data)

	_, err := dispatch(context.Background(), d, m, nil)
	require.Error(t, err)
}

func TestDispatchAddSegmentRequiresLiteralTokens(t *testing.T) {
	d := &fakeDispatcher{}
	data, _ := encode("add_segment", "a.wav", "desc", "bogus", 0.1, "end", 0.5)
	m, _ := decode(data)

	_, err := dispatch(context.Background(), d, m, nil)
	require.Error(t, err)
}

func TestDispatchAddSegmentValidTokens(t *testing.T) {
	d := &fakeDispatcher{}
	data, _ := encode("add_segment", "a.wav", "desc", "start", 0.1, "end", 0.5)
	m, _ := decode(data)

	reply, err := dispatch(context.Background(), d, m, nil)
	require.NoError(t, err)
	require.Equal(t, "added segment", reply)
}

func TestServerDatagramRoundTrip(t *testing.T) {
	d := &fakeDispatcher{invokeReply: "invoked: 1 resonances queued"}

	srv, err := NewServer(d, "127.0.0.1", 0, "127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer srv.Close()

	listenAddr := srv.conn.LocalAddr().String()

	client, err := NewServer(&fakeDispatcher{}, "127.0.0.1", 0, "127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer client.Close()
	replyAddr := client.conn.LocalAddr().String()

	// Point the real server's replies at the client socket.
	srv.sendAddr, err = resolveUDP(replyAddr)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	serverAddr, err := resolveUDP(listenAddr)
	require.NoError(t, err)

	data, err := encode("invoke", "atmospheric")
	require.NoError(t, err)
	_, err = client.conn.WriteToUDP(data, serverAddr)
	require.NoError(t, err)

	client.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, _, err := client.conn.ReadFromUDP(buf)
	require.NoError(t, err)

	reply, err := decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, "confirm", reply.Address)
	text, err := reply.string(0)
	require.NoError(t, err)
	require.Equal(t, "invoked: 1 resonances queued", text)
}
