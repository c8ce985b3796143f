package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lyzr/haystack/cmd/dircache/routes"
	"github.com/lyzr/haystack/common/bootstrap"
	"github.com/lyzr/haystack/common/resolution"
	"github.com/lyzr/haystack/common/server"
)

const serviceName = "dircache"

func main() {
	ctx := context.Background()

	// The directory never reads the store
	components, err := bootstrap.Setup(ctx, serviceName, bootstrap.WithoutStore())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	directory := resolution.NewDirectory(
		components.Cache,
		components.Config.Directory.LoadBalancerHost,
		components.Config.Cache.TTL,
		components.Logger,
	)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	e.GET("/health", echo.WrapHandler(server.HealthHandler(serviceName, components)))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if components.Telemetry != nil && components.Telemetry.TracezHandler() != nil {
		e.GET("/tracez", echo.WrapHandler(components.Telemetry.TracezHandler()))
	}

	routes.RegisterDirectoryRoutes(e, directory, components.Logger)

	components.Logger.Info("directory ready", "load_balancer", components.Config.Directory.LoadBalancerHost)

	srv := server.New(serviceName, components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("Server error", "error", err)
		components.Shutdown(context.Background())
		os.Exit(1)
	}
}
