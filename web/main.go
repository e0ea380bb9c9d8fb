package main

import (
	"encoding/base64"
	"log"
	"os"

	"careloop.com/careloop/core"
	"careloop.com/careloop/infrastructure/communication"
	"careloop.com/careloop/web/handlers/authorization"
	"careloop.com/careloop/web/handlers/submission"
	"careloop.com/careloop/web/handlers/visit"
	"careloop.com/careloop/web/middlewares"
	"github.com/gin-gonic/gin"
)

func main() {
	dsn := os.Getenv("DSN")
	if dsn == "" {
		log.Fatal("DSN is not set")
	}

	jwtSecret, err := base64.StdEncoding.DecodeString(os.Getenv("JWT_SECRET"))
	if err != nil || len(jwtSecret) == 0 {
		log.Fatal("JWT_SECRET must be a base64 encoded key")
	}

	dm, err := core.New(dsn, 32)
	if err != nil {
		log.Fatalf("failed to connect database pool: %v", err)
	}
	defer dm.Close()

	alerts := communication.ConnectSlack()

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	protected := r.Group("/api")
	protected.Use(middlewares.Authentication(jwtSecret))
	{
		visit.Register(protected, dm, alerts)
		authorization.Register(protected, dm)
		submission.Register(protected, submission.NewS3Archive(os.Getenv("EVV_ARCHIVE_BUCKET")))
	}

	r.Run(":8090")
}
