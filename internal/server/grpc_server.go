package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/config"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/logger"
)

// HeaderRequestID is shared by the gRPC metadata and the HTTP header.
const HeaderRequestID = "x-request-id"

// publicMethods skip the bearer-token check.
var publicMethods = []string{
	"/grpc.health.v1.Health/",
}

// NewGRPCServer builds a gRPC server with request-id, logging and auth
// interceptors and registers all provided services plus health and reflection.
func NewGRPCServer(appCtx *app.AppContext, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(
		// base64 photos in AddPhoto run past the 4MB default
		grpc.MaxRecvMsgSize(2*int(appCtx.Config.Photos.MaxBytes)+(1<<20)),
		grpc.ChainUnaryInterceptor(
			requestIDInterceptor(appCtx.Logger),
			loggingInterceptor(appCtx.Logger),
			authInterceptor(appCtx.Tokens),
		),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// StartGRPCServer listens on the configured address and serves until the
// server is stopped. A GracefulStop returns nil.
func StartGRPCServer(cfg *config.Config, grpcServer *grpc.Server) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return grpcServer.Serve(lis)
}

func firstMD(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// requestIDInterceptor reuses the caller's x-request-id or mints one, echoes
// it back as a header and attaches a request-scoped logger to ctx.
func requestIDInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := firstMD(ctx, HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(HeaderRequestID, requestID))

		ctx = logger.IntoContext(ctx, base.With(slog.String("request_id", requestID)))
		return handler(ctx, req)
	}
}

func loggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		log, ok := logger.FromContext(ctx)
		if !ok {
			log = base
		}
		code := status.Code(err)
		level := slog.LevelInfo
		switch code {
		case codes.OK:
		case codes.Internal, codes.Unknown, codes.DeadlineExceeded:
			level = slog.LevelError
		default:
			level = slog.LevelWarn
		}
		log.LogAttrs(ctx, level, "gRPC Request",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}

// authInterceptor resolves the "authorization: Bearer <jwt>" metadata into
// the caller id every MatchService method reads via auth.UserIDFromContext.
func authInterceptor(tokens *auth.TokenService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		for _, prefix := range publicMethods {
			if strings.HasPrefix(info.FullMethod, prefix) {
				return handler(ctx, req)
			}
		}
		userID, err := tokens.FromHeader(firstMD(ctx, "authorization"))
		if err != nil {
			return nil, svcErr.Map(svcErr.Unauthenticated(err.Error()))
		}
		return handler(auth.WithUserID(ctx, userID), req)
	}
}
