// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package main

import (
	"flag"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/trimora/internal/api"
	"github.com/ZSC714725/trimora/internal/config"
	"github.com/ZSC714725/trimora/internal/ffmpeg"
	"github.com/ZSC714725/trimora/internal/job"
	"github.com/ZSC714725/trimora/internal/logger"
	"github.com/ZSC714725/trimora/internal/trim"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	bind := flag.String("bind", "", "Bind address (overrides config)")
	ffmpegBin := flag.String("ffmpeg", "", "FFmpeg binary path (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
	}

	bindAddr := cfg.Server.Bind
	if *bind != "" {
		bindAddr = *bind
	}
	ffmpegPath := cfg.FFmpeg.Path
	if *ffmpegBin != "" {
		ffmpegPath = *ffmpegBin
	}

	lg := logger.New("trimora ")

	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:      ffmpegPath,
		ProbeBinary: cfg.FFmpeg.ProbePath,
	})
	if err != nil {
		log.Fatalf("FFmpeg init: %v", err)
	}

	driver := trim.NewDriver(trim.Config{
		Binary: ff.Binary(),
		Prober: ff,
		Logger: lg,
	})
	store := job.NewStore(driver, lg)
	handler := api.NewHandler(store, ff, cfg)

	r := gin.Default()
	r.Use(gin.Recovery(), cors.Default())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/version", handler.Version)

		v1.GET("/jobs", handler.ListJobs)
		v1.POST("/jobs", handler.AddJob)
		v1.GET("/jobs/:id", handler.GetJob)
		v1.POST("/jobs/:id/cancel", handler.CancelJob)
		v1.DELETE("/jobs/:id", handler.DeleteJob)

		v1.POST("/batches", handler.AddBatch)

		v1.POST("/validate/range", handler.ValidateRange)
		v1.POST("/validate/segments", handler.ValidateSegments)
	}

	log.Printf("Trimora listening on %s", bindAddr)
	if err := r.Run(bindAddr); err != nil {
		log.Fatalf("Server: %v", err)
	}
}
