package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"snakearena.live/app"
	"snakearena.live/config"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "Server port")
	staticDir := flag.String("static", cfg.StaticDir, "Static files directory (default: auto-detect)")
	gridWidth := flag.Int("grid-width", cfg.GridWidth, "Grid width")
	gridHeight := flag.Int("grid-height", cfg.GridHeight, "Grid height")
	flag.Parse()

	cfg.Port = *port
	cfg.GridWidth = *gridWidth
	cfg.GridHeight = *gridHeight
	cfg.StaticDir = *staticDir

	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("SnakeArena server starting...")

	if cfg.StaticDir == "" {
		cwd, _ := os.Getwd()
		if _, err := os.Stat(filepath.Join(cwd, "index.html")); err == nil {
			cfg.StaticDir = cwd
		} else {
			exe, _ := os.Executable()
			binDir := filepath.Dir(exe)
			parent := filepath.Dir(binDir)
			if _, err := os.Stat(filepath.Join(parent, "index.html")); err == nil {
				cfg.StaticDir = parent
			} else {
				cfg.StaticDir = cwd
				log.Printf("WARNING: index.html not found in %s or %s", cwd, parent)
			}
		}
	}

	srv := app.New(cfg)
	log.Fatal(srv.ListenAndServe())
}
