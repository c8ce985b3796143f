package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lyzr/haystack/cmd/cacheserver/container"
	"github.com/lyzr/haystack/cmd/cacheserver/routes"
	"github.com/lyzr/haystack/common/bootstrap"
	"github.com/lyzr/haystack/common/server"
)

const serviceName = "cacheserver"

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, cache, store partitions, telemetry)
	components, err := bootstrap.Setup(ctx, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Build the pipeline once; every request shares it
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupOperationalRoutes(e, components)
	routes.RegisterPhotoRoutes(e, serviceContainer)

	startServer(e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
}

// setupOperationalRoutes registers health, metrics and trace endpoints
func setupOperationalRoutes(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", echo.WrapHandler(server.HealthHandler(serviceName, components)))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if components.Telemetry != nil && components.Telemetry.TracezHandler() != nil {
		e.GET("/tracez", echo.WrapHandler(components.Telemetry.TracezHandler()))
	}
}

// startServer serves until SIGINT/SIGTERM
func startServer(e *echo.Echo, components *bootstrap.Components) {
	srv := server.New(serviceName, components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("Server error", "error", err)
		components.Shutdown(context.Background())
		os.Exit(1)
	}
}
