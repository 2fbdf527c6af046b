package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/config"
	"github.com/renolink/renolink/internal/logger"
	"github.com/renolink/renolink/internal/server"
	"github.com/renolink/renolink/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		db.Module,
		fx.Provide(RegisterSnowflake),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
