package match

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-match/internal/app"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "muzz.match.v1.MatchService"

// MatchServer is the server API of MatchService.
type MatchServer interface {
	CreateLike(context.Context, *TargetRequest) (*CreateLikeResponse, error)
	ListLikes(context.Context, *ListLikesRequest) (*ListLikesResponse, error)
	CountLikesReceived(context.Context, *Empty) (*CountResponse, error)
	BlockUser(context.Context, *TargetRequest) (*Empty, error)
	UnblockUser(context.Context, *TargetRequest) (*Empty, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	GetThread(context.Context, *GetThreadRequest) (*GetThreadResponse, error)
	CountUnread(context.Context, *Empty) (*CountResponse, error)
	ViewProfile(context.Context, *TargetRequest) (*ViewProfileResponse, error)
	GetContact(context.Context, *TargetRequest) (*GetContactResponse, error)
	UnlockContact(context.Context, *TargetRequest) (*UnlockContactResponse, error)
	Nearby(context.Context, *NearbyRequest) (*NearbyResponse, error)
	UpdateLocation(context.Context, *UpdateLocationRequest) (*Empty, error)
	SetShowNearby(context.Context, *SetShowNearbyRequest) (*Empty, error)
	GetDailyPick(context.Context, *Empty) (*DailyPickResponse, error)
	Discover(context.Context, *DiscoverRequest) (*DiscoverResponse, error)
	AddPhoto(context.Context, *AddPhotoRequest) (*AddPhotoResponse, error)
	DeletePhoto(context.Context, *DeletePhotoRequest) (*Empty, error)
	DeleteAccount(context.Context, *Empty) (*Empty, error)
}

var _ MatchServer = (*Service)(nil)

// unary adapts a typed method to a grpc.MethodDesc. The request is decoded
// by whatever codec the call negotiated (json for this service).
func unary[Req, Resp any](name string, call func(MatchServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(MatchServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes MatchService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateLike", MatchServer.CreateLike),
		unary("ListLikes", MatchServer.ListLikes),
		unary("CountLikesReceived", MatchServer.CountLikesReceived),
		unary("BlockUser", MatchServer.BlockUser),
		unary("UnblockUser", MatchServer.UnblockUser),
		unary("SendMessage", MatchServer.SendMessage),
		unary("GetThread", MatchServer.GetThread),
		unary("CountUnread", MatchServer.CountUnread),
		unary("ViewProfile", MatchServer.ViewProfile),
		unary("GetContact", MatchServer.GetContact),
		unary("UnlockContact", MatchServer.UnlockContact),
		unary("Nearby", MatchServer.Nearby),
		unary("UpdateLocation", MatchServer.UpdateLocation),
		unary("SetShowNearby", MatchServer.SetShowNearby),
		unary("GetDailyPick", MatchServer.GetDailyPick),
		unary("Discover", MatchServer.Discover),
		unary("AddPhoto", MatchServer.AddPhoto),
		unary("DeletePhoto", MatchServer.DeletePhoto),
		unary("DeleteAccount", MatchServer.DeleteAccount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "muzz/match/v1/match.json",
}

// Registrar ties the Match service into the gRPC and HTTP servers
type Registrar struct {
	appCtx *app.AppContext
	svc    *Service
}

// NewRegistrar creates a new Registrar for the Match service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx, svc: NewMatchService(appCtx)}
}

// Register attaches the Match service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, r.svc)
}
