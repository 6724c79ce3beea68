package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/mandelbrot"
	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/rpc"
	"github.com/besen/fractiles/task"
)

// Worker renders the tiles a coordinator hands out until the coordinator runs out of tasks.
type Worker struct {
	cancel         context.CancelFunc
	client         rpc.Client
	ctx            context.Context
	finished       chan struct{}
	imageFormat    misc.ImageFormat
	logger         bslogger.Logger
	myAddress      string
	renderer       *mandelbrot.Renderer
	server         rpc.Server
	stopOnce       sync.Once
	tasksCompleted atomic.Int64
	tilesFailed    atomic.Int64
}

func NewWorker(settings Settings) (*Worker, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	worker := &Worker{
		cancel:   cancel,
		ctx:      ctx,
		finished: make(chan struct{}),
		logger:   bslogger.NewLogger("Worker", bslogger.Normal, nil),
	}

	// Find a free port to use for this worker
	port, err := misc.GetFreePort()
	if err != nil {
		cancel()
		return nil, err
	}
	worker.logger.Debugf("Found free port: %d", port)
	worker.myAddress = fmt.Sprintf("%s:%d", settings.Host, port)
	worker.logger = bslogger.NewLogger(fmt.Sprintf("Worker %s", worker.myAddress), bslogger.Normal, nil)

	worker.server, err = rpc.NewServer(settings.Transport, worker, worker.myAddress, worker.myAddress)
	if err != nil {
		cancel()
		return nil, err
	}
	if err = worker.server.Run(); err != nil {
		cancel()
		return nil, err
	}
	worker.client, err = rpc.NewClient(settings.Transport, settings.CoordinatorAddress, settings.CoordinatorAddress)
	if err != nil {
		worker.stop()
		return nil, err
	}

	if err = worker.join(settings); err != nil {
		worker.stop()
		return nil, err
	}

	go worker.tickers()
	go worker.processTasks()

	return worker, nil
}

// join registers with the coordinator and builds the renderer from the coordinator's settings.
func (w *Worker) join(settings Settings) error {
	if err := w.client.Connect(); err != nil {
		return err
	}
	var nothing misc.Nothing
	if err := w.client.Call("Coordinator.RegisterWorker", w.myAddress, &nothing); err != nil {
		return err
	}

	var mandelbrotSettings mandelbrot.Settings
	if err := w.client.Call("Coordinator.GetMandelbrotSettings", nothing, &mandelbrotSettings); err != nil {
		return err
	}
	// Parallelism depends on this machine, not the coordinator's
	mandelbrotSettings.Parallelism = settings.Parallelism
	renderer, err := mandelbrot.NewRenderer(mandelbrotSettings)
	if err != nil {
		return err
	}
	w.renderer = renderer

	return w.client.Call("Coordinator.GetImageFormat", nothing, &w.imageFormat)
}

// Wait blocks until the worker has left the coordinator and stopped its server.
func (w *Worker) Wait() {
	<-w.finished
}

// TasksCompleted is the number of tasks returned to the coordinator so far.
func (w *Worker) TasksCompleted() int64 {
	return w.tasksCompleted.Load()
}

func (w *Worker) tickers() {
	rollCall := time.NewTicker(time.Minute)
	heartBeat := time.NewTicker(30 * time.Second)
	defer rollCall.Stop()
	defer heartBeat.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-rollCall.C:
			w.logger.Debug("Roll call ticker")
			var junk misc.Nothing
			var reply bool
			err := w.client.Call("Coordinator.RollCall", junk, &reply)
			if err != nil {
				// Cannot communicate with the Coordinator so we should shut down
				w.logger.Warningf("Coordinator missed roll call: %s", err)
				w.cancel()
				return
			}

		case <-heartBeat.C:
			w.logger.Debug("Heart beat ticker")
			w.logger.Infof("Tasks [Completed: %d] | Tiles [Failed: %d]", w.tasksCompleted.Load(), w.tilesFailed.Load())
		}
	}
}

func (w *Worker) processTasks() {
	w.logger.Info("Processing tasks")

	var nothing misc.Nothing
	startTime := time.Now()

	for w.ctx.Err() == nil {
		var taskTodo task.Task
		err := w.client.Call("Coordinator.GetTask", w.myAddress, &taskTodo)
		if err != nil {
			// This is an expected error. No more work to do
			if err.Error() != task.ErrAllTasksHandedOut.Error() {
				w.logger.Errorf("Unable to get a task: %s", err.Error())
			}
			break
		}

		w.process(&taskTodo)
		if w.ctx.Err() != nil {
			break
		}

		err = w.client.Call("Coordinator.ReturnTask", taskTodo, &nothing)
		if err != nil {
			w.logger.Errorf("Unable to return a task: %s", err.Error())
			break
		}
		w.tasksCompleted.Add(1)
	}

	w.logger.Info("Done processing tasks")
	w.logger.Debugf("Processed %d tasks in %s", w.tasksCompleted.Load(), time.Since(startTime))

	w.logger.Info("Shutting down")
	misc.CheckError(w.client.Call("Coordinator.DeRegisterWorker", w.myAddress, &nothing), w.logger, misc.Debug)
	w.stop()
}

// process renders every tile of t. Failures are reported per tile so the rest of the task survives.
func (w *Worker) process(t *task.Task) {
	for {
		coordinate, err := t.GetNextTask()
		if err != nil {
			return
		}

		result := task.Result{Coordinate: coordinate}
		img, err := w.renderer.RenderTile(w.ctx, coordinate)
		if err == nil {
			result.Image, err = misc.EncodeImage(img, w.imageFormat)
		}
		if err != nil {
			w.logger.Errorf("Unable to render tile %s: %s", coordinate.String(), err)
			result.Error = err.Error()
			w.tilesFailed.Add(1)
		}
		t.AddResult(result)
	}
}

func (w *Worker) stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		if w.client != nil {
			misc.CheckError(w.client.Disconnect(), w.logger, misc.Debug)
		}
		misc.CheckError(w.server.Stop(), w.logger, misc.Warning)
		close(w.finished)
	})
}

func (w *Worker) RollCall(request misc.Nothing, reply *bool) error {
	*reply = true
	return nil
}
