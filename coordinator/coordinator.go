package coordinator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/mandelbrot"
	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/rpc"
	"github.com/besen/fractiles/swatch"
	"github.com/besen/fractiles/task"
	"github.com/besen/fractiles/tile"
)

// Coordinator hands the tiles of a zoom pyramid out to workers and saves the rendered tiles under
// <SavePath>/<RunName>/<z>/<x>/<y>.<ext>.
type Coordinator struct {
	clients            map[string]rpc.Client
	done               chan struct{}
	finished           chan struct{}
	logger             bslogger.Logger
	mutex              sync.Mutex
	runPath            string
	settings           Settings
	taskCount          uint
	taskGeneratedCount uint
	taskIngestedCount  uint
	tasksHandedOut     map[string]map[uint]task.Task // keep track of all tasks workers have
	tasksDone          chan task.Task
	tasksTodo          chan task.Task
	tilesFailed        uint
	tilesSaved         uint
	workerWait         *sync.WaitGroup

	Server rpc.Server
}

func NewCoordinator(settings Settings) (*Coordinator, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}

	coordinator := &Coordinator{
		clients:        make(map[string]rpc.Client),
		done:           make(chan struct{}),
		finished:       make(chan struct{}),
		logger:         bslogger.NewLogger("Coordinator", bslogger.Normal, nil),
		runPath:        filepath.Join(settings.SavePath, settings.RunName),
		settings:       settings,
		taskCount:      uint(task.Count(settings.TaskGeneration, settings.MinZoom, settings.MaxZoom)),
		tasksHandedOut: make(map[string]map[uint]task.Task),
		tasksDone:      make(chan task.Task, 1000),
		tasksTodo:      make(chan task.Task, 1000),
		workerWait:     &sync.WaitGroup{},
	}

	// Create directory to store files for this run
	if err := os.MkdirAll(coordinator.runPath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("unable to create folder %s - %w", coordinator.runPath, err)
	}

	// Copy the settings to the directory so the run can be duplicated in the future
	bytes, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return nil, err
	}
	if _, err = misc.WriteFile(filepath.Join(coordinator.runPath, "settings.json"), bytes); err != nil {
		return nil, fmt.Errorf("unable to make a backup copy of the settings - %w", err)
	}

	// Save the palette next to the tiles
	p, err := settings.MandelbrotSettings.Palette()
	if err != nil {
		return nil, err
	}
	if err = swatch.SavePNG(&p, filepath.Join(coordinator.runPath, "palette.png")); err != nil {
		return nil, fmt.Errorf("unable to save the palette swatch - %w", err)
	}

	// Create a log file to record the run
	logFile, err := os.Create(filepath.Join(coordinator.runPath, "coordinator.log"))
	if !misc.CheckError(err, coordinator.logger, misc.Warning) {
		coordinator.logger = bslogger.NewLogger("Coordinator", bslogger.Normal, logFile)
	}

	// Start up the rpc server to allow workers to communicate with the coordinator
	coordinator.Server, err = rpc.NewServer(settings.Transport, coordinator, settings.ServerAddress, "CoordinatorServer")
	if err == nil {
		err = coordinator.Server.Run()
	}
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}

	go coordinator.tickers()
	go coordinator.generateTasks()
	go coordinator.ingestTasks(logFile)

	return coordinator, nil
}

// Wait blocks until every tile has been ingested, the workers have left and the server is stopped.
func (c *Coordinator) Wait() {
	<-c.finished
}

func (c *Coordinator) RunPath() string {
	return c.runPath
}

// TilePath is where the tile at coordinate is saved.
func (c *Coordinator) TilePath(coordinate tile.Coordinate) string {
	return filepath.Join(
		c.runPath,
		strconv.FormatFloat(coordinate.Z, 'f', -1, 64),
		strconv.Itoa(coordinate.X),
		fmt.Sprintf("%d.%s", coordinate.Y, c.settings.ImageFormat.Extension()),
	)
}

func (c *Coordinator) tickers() {
	rollCall := time.NewTicker(time.Minute)
	heartBeat := time.NewTicker(30 * time.Second)
	defer rollCall.Stop()
	defer heartBeat.Stop()

	for {
		select {
		case <-c.done:
			return

		case <-rollCall.C:
			c.logger.Debug("Roll call ticker")
			c.mutex.Lock()
			clients := make(map[string]rpc.Client, len(c.clients))
			for name, client := range c.clients {
				clients[name] = client
			}
			c.mutex.Unlock()

			var junk misc.Nothing
			for name, client := range clients {
				var reply bool
				err := client.Call("Worker.RollCall", junk, &reply)
				if err != nil {
					// Cannot communicate with the worker so remove it from the pool
					c.logger.Warningf("Worker %s missed roll call: %s", name, err)
					var nothing misc.Nothing
					misc.CheckError(c.DeRegisterWorker(name, &nothing), c.logger, misc.Warning)
				}
			}

		case <-heartBeat.C:
			c.logger.Debug("Heart beat ticker")
			c.mutex.Lock()
			c.logger.Infof("Tasks [Generated: %d] [Ingested: %d] [Total: %d] | Tiles [Saved: %d] [Failed: %d]", c.taskGeneratedCount, c.taskIngestedCount, c.taskCount, c.tilesSaved, c.tilesFailed)
			c.mutex.Unlock()
		}
	}
}

func (c *Coordinator) generateTasks() {
	c.logger.Info("Generating tasks")
	startTime := time.Now()

	for z := c.settings.MinZoom; z <= c.settings.MaxZoom; z++ {
		switch c.settings.TaskGeneration {
		case task.Tile:
			for y := 0; y < tile.LevelSize(z); y++ {
				for x := 0; x < tile.LevelSize(z); x++ {
					taskTodo := c.newTask()
					taskTodo.AddTaskForTile(tile.Coordinate{X: x, Y: y, Z: float64(z)})
					if !c.queue(taskTodo) {
						return
					}
				}
			}
		case task.Row:
			for y := 0; y < tile.LevelSize(z); y++ {
				taskTodo := c.newTask()
				taskTodo.AddTasksForRow(z, y)
				if !c.queue(taskTodo) {
					return
				}
			}
		case task.Level:
			taskTodo := c.newTask()
			taskTodo.AddTasksForLevel(z)
			if !c.queue(taskTodo) {
				return
			}
		}
	}

	c.logger.Debugf("Done generating %d tasks in %s", c.taskCount, time.Since(startTime))
}

func (c *Coordinator) newTask() task.Task {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	taskTodo := task.NewTask(c.taskGeneratedCount)
	c.taskGeneratedCount++
	return taskTodo
}

// queue reports false once the run is over and nobody will take the task.
func (c *Coordinator) queue(t task.Task) bool {
	select {
	case c.tasksTodo <- t:
		return true
	case <-c.done:
		return false
	}
}

func (c *Coordinator) ingestTasks(logFile *os.File) {
	c.logger.Info("Ingesting tasks")
	startTime := time.Now()

	for c.taskIngestedCount < c.taskCount {
		taskReceived := <-c.tasksDone

		for _, result := range taskReceived.Results {
			if result.Error != "" {
				c.logger.Errorf("Worker %s failed tile %s: %s", taskReceived.WorkerAddress, result.Coordinate.String(), result.Error)
				c.mutex.Lock()
				c.tilesFailed++
				c.mutex.Unlock()
				continue
			}

			if _, err := misc.DecodeImage(result.Image, c.settings.ImageFormat); err != nil {
				c.logger.Errorf("Worker %s returned an unreadable tile %s: %s", taskReceived.WorkerAddress, result.Coordinate.String(), err)
				c.mutex.Lock()
				c.tilesFailed++
				c.mutex.Unlock()
				continue
			}

			path := c.TilePath(result.Coordinate)
			if _, err := misc.WriteFile(path, result.Image); err != nil {
				c.logger.Errorf("Unable to save tile: %s", err)
				c.mutex.Lock()
				c.tilesFailed++
				c.mutex.Unlock()
				continue
			}
			c.logger.Debugf("Saved tile to %s", path)
			c.mutex.Lock()
			c.tilesSaved++
			c.mutex.Unlock()
		}

		c.mutex.Lock()
		c.taskIngestedCount++
		c.mutex.Unlock()
	}

	close(c.done)
	c.logger.Infof("Done ingesting %d tasks in %s [Saved: %d] [Failed: %d]", c.taskIngestedCount, time.Since(startTime), c.tilesSaved, c.tilesFailed)

	c.mutex.Lock()
	c.logger.Infof("Waiting for %d workers to disconnect", len(c.clients))
	c.mutex.Unlock()
	c.workerWait.Wait()
	misc.CheckError(c.Server.Stop(), c.logger, misc.Warning)

	if logFile != nil {
		logFile.Close()
	}
	close(c.finished)
}

// RegisterWorker adds a worker to the pool. A worker that registers again keeps the tasks it
// already holds.
func (c *Coordinator) RegisterWorker(workerServerAddress string, reply *misc.Nothing) error {
	c.mutex.Lock()
	_, known := c.clients[workerServerAddress]
	c.mutex.Unlock()
	if known {
		c.logger.Warningf("Worker %s registered again", workerServerAddress)
		return nil
	}

	// Create a client to communicate with this worker
	client, err := rpc.NewClient(c.settings.Transport, workerServerAddress, workerServerAddress)
	if err != nil {
		return err
	}
	misc.CheckError(client.Connect(), c.logger, misc.Warning)

	c.mutex.Lock()
	if _, known = c.clients[workerServerAddress]; known {
		// Lost a race with a concurrent registration of the same worker
		c.mutex.Unlock()
		misc.CheckError(client.Disconnect(), c.logger, misc.Debug)
		return nil
	}
	c.clients[workerServerAddress] = client
	// Track all tasks this worker checks out
	c.tasksHandedOut[workerServerAddress] = make(map[uint]task.Task)
	c.workerWait.Add(1)
	c.mutex.Unlock()

	c.logger.Infof("Worker joined: %s", workerServerAddress)

	return nil
}

func (c *Coordinator) DeRegisterWorker(workerServerAddress string, reply *misc.Nothing) error {
	c.mutex.Lock()
	client, ok := c.clients[workerServerAddress]
	if !ok {
		c.mutex.Unlock()
		return fmt.Errorf("unknown worker %s", workerServerAddress)
	}
	unfinished := c.tasksHandedOut[workerServerAddress]
	delete(c.tasksHandedOut, workerServerAddress)
	delete(c.clients, workerServerAddress)
	c.mutex.Unlock()

	// Put tasks this worker has not returned yet back into the tasksTodo pool
	if len(unfinished) > 0 {
		c.logger.Warningf("Re-queueing %d tasks from worker %s", len(unfinished), workerServerAddress)
		go func(tasks map[uint]task.Task) {
			for _, v := range tasks {
				v.WorkerAddress = ""
				v.Results = nil
				v.CurrentTask = 0
				if !c.queue(v) {
					return
				}
			}
		}(unfinished)
	}

	misc.CheckError(client.Disconnect(), c.logger, misc.Debug)

	c.logger.Infof("Worker left: %s", workerServerAddress)
	c.workerWait.Done()

	return nil
}

func (c *Coordinator) RollCall(nothing misc.Nothing, present *bool) error {
	*present = true
	return nil
}

// GetTask blocks until a task is available. Once the run is complete it answers with
// task.ErrAllTasksHandedOut.
func (c *Coordinator) GetTask(workerAddress string, t *task.Task) error {
	select {
	case todo := <-c.tasksTodo:
		c.mutex.Lock()
		defer c.mutex.Unlock()
		handedOut, ok := c.tasksHandedOut[workerAddress]
		if !ok {
			// The worker was dropped while it waited, give the task to someone else
			go c.queue(todo)
			return fmt.Errorf("unknown worker %s", workerAddress)
		}
		todo.WorkerAddress = workerAddress
		handedOut[todo.ID] = todo
		*t = todo
		return nil
	case <-c.done:
		c.logger.Info("Telling worker that all tasks are handed out")
		return task.ErrAllTasksHandedOut
	}
}

// ReturnTask accepts a finished task. Tasks from workers that were dropped meanwhile have been
// handed out again and are ignored.
func (c *Coordinator) ReturnTask(done task.Task, nothing *misc.Nothing) error {
	c.mutex.Lock()
	_, ok := c.tasksHandedOut[done.WorkerAddress][done.ID]
	if ok {
		delete(c.tasksHandedOut[done.WorkerAddress], done.ID)
	}
	c.mutex.Unlock()

	if !ok {
		c.logger.Warningf("Ignoring task %d from worker %s, it was not handed out to them", done.ID, done.WorkerAddress)
		return nil
	}
	c.tasksDone <- done
	return nil
}

func (c *Coordinator) GetMandelbrotSettings(nothing misc.Nothing, settings *mandelbrot.Settings) error {
	*settings = c.settings.MandelbrotSettings
	return nil
}

func (c *Coordinator) GetImageFormat(nothing misc.Nothing, format *misc.ImageFormat) error {
	*format = c.settings.ImageFormat
	return nil
}
