package main

import (
	"github.com/OFFIS-RIT/amrlink/internal/server"
	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	server.Init()
}
