package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/planner"
	"github.com/rprigarin/test-driven-planner/internal/ui"

	"go.uber.org/zap"
)

var (
	version = "unknown" // This should be set during build with -ldflags="-X main.version=1.0.0"
)

func main() {
	// Check version flag first
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version)
		os.Exit(0)
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: planner [flags]\n")
		flag.PrintDefaults()
	}

	addr := flag.String("addr", ":8080", "Address for the HTTP server to listen on")
	configPath := flag.String("config", "", "Path to the planner configuration file")
	dbName := flag.String("db", planner.DefaultDatabase, "MongoDB database name")
	colName := flag.String("col", planner.DefaultCollection, "MongoDB collection name")
	dataDir := flag.String("data", "", "Directory for the offline task store")
	offline := flag.Bool("offline", false, "Skip MongoDB and serve from the offline store only")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error")
	flag.Parse()

	level, err := zap.ParseAtomicLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %s\n", *logLevel)
		flag.Usage()
		os.Exit(1)
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = level
	logger, err := logConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dir := *dataDir
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			logger.Fatal("Failed to get current directory", zap.Error(err))
		}
	}

	var access *planner.Access
	if *offline {
		access = planner.NewOfflineAccess(dir, logger)
	} else {
		access = planner.NewAccess(context.Background(), *configPath, *dbName, *colName, dir, logger)
	}
	defer access.Close(context.Background())

	initCode := access.InitializationCode()
	logger.Info("Planner access initialized",
		zap.Int("init_code", int(initCode)),
		zap.String("init_status", initCode.String()),
		zap.String("mode", string(access.Mode())))

	if initCode == entities.InitFail {
		logger.Fatal("No usable task store, refusing to start")
	}

	uiApp := ui.NewUI(access, logger)
	if err := uiApp.Run(*addr); err != nil {
		logger.Fatal("UI failed", zap.Error(err))
	}
}
