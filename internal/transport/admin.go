package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"hibikido/internal/controller"
)

// adminJSONCodec lets gRPC carry JSON payloads instead of protobuf, so the
// admin surface needs no generated codec.
type adminJSONCodec struct{}

func (adminJSONCodec) Name() string                    { return "json" }
func (adminJSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (adminJSONCodec) Unmarshal(d []byte, v any) error { return json.Unmarshal(d, v) }

func init() {
	encoding.RegisterCodec(adminJSONCodec{})
}

// AdminRequest/AdminReply are the JSON payloads carried over the admin
// gRPC surface: process-supervisor-facing stats and health, independent
// of the datagram control protocol's `stats` command.
type AdminRequest struct {
	Command string `json:"command"`
}

type AdminReply struct {
	Healthy bool                   `json:"healthy"`
	Stats   *controller.StatsResult `json:"stats,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// AdminServer is a bidirectional streaming gRPC service exposing `stats`
// and `health` to process supervisors over a unix socket, using a
// hand-rolled JSON-codec service descriptor (no protobuf generation).
type AdminServer struct {
	dispatcher Dispatcher
}

// NewAdminServer constructs an AdminServer over dispatcher.
func NewAdminServer(dispatcher Dispatcher) *AdminServer {
	return &AdminServer{dispatcher: dispatcher}
}

// Stream implements the AdminControlServer bidirectional RPC: one
// AdminRequest in, one AdminReply out, repeated for the life of the
// connection.
func (a *AdminServer) Stream(stream AdminControl_StreamServer) error {
	for {
		req, err := stream.Recv()
		if err != nil {
			return err
		}
		reply := a.handle(req)
		if err := stream.Send(reply); err != nil {
			return err
		}
	}
}

func (a *AdminServer) handle(req *AdminRequest) *AdminReply {
	switch req.Command {
	case "health":
		return &AdminReply{Healthy: true}
	case "stats":
		stats := a.dispatcher.Stats()
		return &AdminReply{Healthy: true, Stats: &stats}
	default:
		return &AdminReply{Healthy: true, Error: fmt.Sprintf("invalid input: unknown admin command %q", req.Command)}
	}
}

// AdminControlServer / AdminControl_StreamServer are the hand-written
// stream scaffolding: a minimal bidirectional-stream service description
// built without a .proto file.
type AdminControlServer interface {
	Stream(AdminControl_StreamServer) error
}

type AdminControl_StreamServer interface {
	Send(*AdminReply) error
	Recv() (*AdminRequest, error)
	grpc.ServerStream
}

type adminControlStreamServer struct {
	grpc.ServerStream
}

func (x *adminControlStreamServer) Send(m *AdminReply) error {
	return x.ServerStream.SendMsg(m)
}

func (x *adminControlStreamServer) Recv() (*AdminRequest, error) {
	m := new(AdminRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func adminStreamHandler(srv any, stream grpc.ServerStream) error {
	return srv.(AdminControlServer).Stream(&adminControlStreamServer{stream})
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: "hibikido.Admin",
	HandlerType: (*AdminControlServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       adminStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "internal/transport/admin.go",
}

// RegisterAdminServer registers srv against s under the hand-rolled
// service descriptor above.
func RegisterAdminServer(s *grpc.Server, srv AdminControlServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

// ServeAdmin starts the admin gRPC surface on a unix socket, removing any
// stale socket file first. Errors are logged, not fatal: the admin
// surface is a supervisor convenience, not on the invoke hot path.
func ServeAdmin(socketPath string, dispatcher Dispatcher) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[admin] remove stale socket %s: %v", socketPath, err)
		return
	}
	lis, err := listenUnix(socketPath)
	if err != nil {
		log.Printf("[admin] listen %s: %v", socketPath, err)
		return
	}

	server := grpc.NewServer(
		grpc.Creds(insecure.NewCredentials()),
		grpc.ForceServerCodec(adminJSONCodec{}),
	)
	RegisterAdminServer(server, NewAdminServer(dispatcher))

	log.Printf("[admin] gRPC listening on unix://%s", socketPath)
	if err := server.Serve(lis); err != nil {
		log.Printf("[admin] server stopped: %v", err)
	}
}

func listenUnix(socketPath string) (net.Listener, error) {
	return net.Listen("unix", socketPath)
}
