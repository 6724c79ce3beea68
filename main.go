package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/coordinator"
	"github.com/besen/fractiles/mandelbrot"
	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/server"
	"github.com/besen/fractiles/tile"
	"github.com/besen/fractiles/worker"
)

var (
	isCoordinator, isRender, isServer, isWorker bool
	outFile, settingsFile                       string
	tileX, tileY                                int
	tileZ                                       float64
)

func main() {
	logger := bslogger.NewLogger("Main", bslogger.Normal, nil)
	parseArguments(logger)

	switch {
	case isCoordinator:
		startCoordinator(logger)
	case isWorker:
		startWorker(logger)
	case isServer:
		startServer(logger)
	case isRender:
		renderTile(logger)
	}
}

func parseArguments(logger bslogger.Logger) {
	flag.BoolVar(&isCoordinator, "coordinator", false, "Render a tile pyramid to disk and hand tasks to workers")
	flag.BoolVar(&isWorker, "worker", false, "Render tiles handed out by a coordinator")
	flag.BoolVar(&isServer, "server", false, "Serve tiles on demand over http and websocket")
	flag.BoolVar(&isRender, "render", false, "Render a single tile to -out")
	flag.StringVar(&settingsFile, "settings", "", "Json file with the settings of the chosen mode")
	flag.StringVar(&outFile, "out", "tile.png", "Output file of -render, the extension picks the format")
	flag.IntVar(&tileX, "x", 0, "Tile column for -render")
	flag.IntVar(&tileY, "y", 0, "Tile row for -render")
	flag.Float64Var(&tileZ, "z", 0, "Tile zoom level for -render")
	flag.Parse()

	modes := 0
	for _, set := range []bool{isCoordinator, isWorker, isServer, isRender} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		logger.Fatal("Please specify exactly one of -coordinator, -worker, -server or -render")
	}
	if settingsFile == "" && (isCoordinator || isWorker) {
		logger.Fatal("Please specify a -settings file")
	}
}

func startCoordinator(logger bslogger.Logger) {
	settings, err := coordinator.LoadSettings(settingsFile)
	misc.CheckError(err, logger, misc.Fatal)

	c, err := coordinator.NewCoordinator(settings)
	misc.CheckError(err, logger, misc.Fatal)
	logger.Infof("Writing tiles to %s", c.RunPath())
	c.Wait()
}

func startWorker(logger bslogger.Logger) {
	settings, err := worker.LoadSettings(settingsFile)
	misc.CheckError(err, logger, misc.Fatal)

	w, err := worker.NewWorker(settings)
	misc.CheckError(err, logger, misc.Fatal)
	w.Wait()
	logger.Infof("Worker finished after %d tasks", w.TasksCompleted())
}

func startServer(logger bslogger.Logger) {
	var settings server.Settings
	var err error
	if settingsFile != "" {
		settings, err = server.LoadSettings(settingsFile)
		misc.CheckError(err, logger, misc.Fatal)
	}

	s, err := server.NewServer(settings)
	misc.CheckError(err, logger, misc.Fatal)
	misc.CheckError(s.Run(), logger, misc.Fatal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	misc.CheckError(s.Stop(shutdown), logger, misc.Error)
}

func renderTile(logger bslogger.Logger) {
	var settings mandelbrot.Settings
	if settingsFile != "" {
		fileBytes, err := misc.ReadFile(settingsFile)
		misc.CheckError(err, logger, misc.Fatal)
		err = json.Unmarshal(fileBytes, &settings)
		misc.CheckError(err, logger, misc.Fatal)
	}

	renderer, err := mandelbrot.NewRenderer(settings)
	misc.CheckError(err, logger, misc.Fatal)

	format, err := misc.ParseImageFormat(filepath.Ext(outFile))
	misc.CheckError(err, logger, misc.Fatal)

	coordinate := tile.Coordinate{X: tileX, Y: tileY, Z: tileZ}
	img, err := renderer.RenderTile(context.Background(), coordinate)
	misc.CheckError(err, logger, misc.Fatal)

	data, err := misc.EncodeImage(img, format)
	misc.CheckError(err, logger, misc.Fatal)
	_, err = misc.WriteFile(outFile, data)
	misc.CheckError(err, logger, misc.Fatal)
	logger.Infof("Rendered tile %s to %s", coordinate.String(), outFile)
}
