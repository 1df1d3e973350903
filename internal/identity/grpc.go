package identity

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
)

const (
	serviceName          = "identity.v1.Identity"
	methodResolve        = "/" + serviceName + "/Resolve"
	methodAuthenticate   = "/" + serviceName + "/Authenticate"
	fieldUserID          = "user_id"
	fieldIsManager       = "is_manager"
	fieldIsSuperuser     = "is_superuser"
	fieldEmail           = "email"
	fieldPassword        = "password"
	fieldOK              = "ok"
	identityProtoPackage = "identity/v1/identity.proto"

	callTimeout = 3 * time.Second
)

// Backend is what user-service exposes over gRPC.
type Backend interface {
	Resolver
	Authenticate(ctx context.Context, email, password string) (userID string, ok bool, err error)
}

// IdentityServer is the server API for identity.v1.Identity. Messages are
// google.protobuf.Struct.
type IdentityServer interface {
	Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Authenticate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&identityServiceDesc, srv)
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodResolve}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServer).Resolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func authenticateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).Authenticate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAuthenticate}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServer).Authenticate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: resolveHandler},
		{MethodName: "Authenticate", Handler: authenticateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: identityProtoPackage,
}

// Server adapts a Backend to IdentityServer.
type Server struct {
	backend Backend
}

func NewServer(b Backend) *Server { return &Server{backend: b} }

func (s *Server) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := in.GetFields()[fieldUserID].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	p, err := s.backend.Resolve(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		fieldUserID:      p.UserID,
		fieldIsManager:   p.IsManager,
		fieldIsSuperuser: p.IsSuperuser,
	})
}

func (s *Server) Authenticate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := in.GetFields()
	email, password := f[fieldEmail].GetStringValue(), f[fieldPassword].GetStringValue()
	if email == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password are required")
	}
	id, ok, err := s.backend.Authenticate(ctx, email, password)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{fieldUserID: id, fieldOK: ok})
}

func toStatus(err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, apperr.Message(err))
	case apperr.KindValidation:
		return status.Error(codes.InvalidArgument, apperr.Message(err))
	default:
		return status.Errorf(codes.Internal, "identity: %v", err)
	}
}

// Client calls identity.v1.Identity.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Dial creates a lazy connection to user-service.
func Dial(addr string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func (c *Client) Resolve(ctx context.Context, userID string) (*Principal, error) {
	in, err := structpb.NewStruct(map[string]any{fieldUserID: userID})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodResolve, in, out, grpc.WaitForReady(true)); err != nil {
		return nil, fromStatus(err)
	}
	f := out.GetFields()
	return &Principal{
		UserID:      f[fieldUserID].GetStringValue(),
		IsManager:   f[fieldIsManager].GetBoolValue(),
		IsSuperuser: f[fieldIsSuperuser].GetBoolValue(),
	}, nil
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (string, bool, error) {
	in, err := structpb.NewStruct(map[string]any{fieldEmail: email, fieldPassword: password})
	if err != nil {
		return "", false, err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodAuthenticate, in, out, grpc.WaitForReady(true)); err != nil {
		return "", false, fromStatus(err)
	}
	f := out.GetFields()
	return f[fieldUserID].GetStringValue(), f[fieldOK].GetBoolValue(), nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return ErrUnknownUser
	case codes.InvalidArgument:
		return apperr.Validation(st.Message())
	case codes.DeadlineExceeded, codes.Unavailable:
		return apperr.Gateway("identity service unavailable", err, true)
	}
	return errors.Join(errors.New("identity rpc failed"), err)
}
