package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/milk9111/collisioncallback/logging"
)

func main() {
	sceneName := flag.String("scene", "demo", "scene name in prefabs/scenes/ (basename, .yaml optional)")
	debug := flag.Bool("debug", false, "enable debug logging and the registry stats overlay")
	watch := flag.Bool("watch", false, "rebuild the scene when files under prefabs/ change")
	flag.Parse()

	logger, err := logging.New(*debug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("collision callbacks")

	game, err := NewGame(*sceneName, *debug, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.String("scene", *sceneName), zap.Error(err))
	}
	defer game.Close()

	if *watch {
		if err := game.Watch(); err != nil {
			logger.Warn("hot reload disabled", zap.Error(err))
		}
	}

	if err := ebiten.RunGame(game); err != nil {
		logger.Error("game stopped", zap.Error(err))
	}
}
