package main

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pubky-app/social-core/app"
	"github.com/pubky-app/social-core/homeserver"
	"github.com/pubky-app/social-core/nexus"
	"github.com/pubky-app/social-core/server"
	"github.com/pubky-app/social-core/server/middlewares"
	. "github.com/pubky-app/social-core/utils"
	"github.com/pubky-app/social-core/utils/dotenv"
	. "github.com/pubky-app/social-core/utils/flag"
	. "github.com/pubky-app/social-core/utils/log"
)

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	ParseFlags()
	InitLogger()
	middlewares.Setup()

	viewerId := os.Getenv("VIEWER_ID")
	if viewerId == "" {
		Log.Fatal("VIEWER_ID must name the account this cache belongs to")
	}

	db, err := GetDBConnection()
	if err != nil {
		Log.Fatal("cannot open cache database: ", err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		Log.Fatal("cannot migrate cache database: ", err)
	}

	// read markers are a nicety; the daemon runs fine without redis
	markers, err := GetReadMarkerStore()
	if err != nil {
		Log.Warn("read marker store unavailable, continuing without: ", err)
		markers = nil
	}

	core := app.NewCore(db, viewerId, nexus.NewClientFromEnv(), homeserver.NewClientFromEnv())
	defer core.Close()

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.Use(middlewares.Session())
	server.NewHandlers(core, markers).Register(router)

	Log.Info("cache daemon starts up for viewer ", viewerId)
	router.Run(":8080")
}
