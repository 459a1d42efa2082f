package server

import (
	"github.com/labstack/echo/v4"
	"google.golang.org/grpc"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// RouteRegistrar mounts a service's REST routes on the authenticated /v1 group.
type RouteRegistrar interface {
	RegisterRoutes(g *echo.Group)
}
