package rpc

import (
	"errors"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
)

type TcpServer struct {
	address  string
	conns    map[net.Conn]struct{}
	listener *net.TCPListener
	mutex    sync.Mutex
	object   interface{}
	shutdown chan bool

	Logger bslogger.Logger
	Name   string
	WG     *sync.WaitGroup
}

func NewTcpServer(object interface{}, address string, name string) *TcpServer {
	return &TcpServer{
		address:  address,
		conns:    make(map[net.Conn]struct{}),
		object:   object,
		shutdown: make(chan bool, 1),
		Logger:   bslogger.NewLogger(name, bslogger.Normal, nil),
		Name:     name,
		WG:       &sync.WaitGroup{},
	}
}

func (ts *TcpServer) Run() error {
	handler := rpc.NewServer()
	err := handler.Register(ts.object)
	if err != nil {
		ts.Logger.Error("Registering object")
		return err
	}

	tcpAddress, err := net.ResolveTCPAddr("tcp", ts.address)
	if err != nil {
		ts.Logger.Errorf("Resolving tcp address %s", ts.address)
		return err
	}

	ts.listener, err = net.ListenTCP("tcp", tcpAddress)
	if err != nil {
		ts.Logger.Errorf("Listening at address %s", ts.address)
		return err
	}
	// Port 0 picks a free port, report the real one
	ts.address = ts.listener.Addr().String()

	ts.WG.Add(1)
	go func() {
		defer ts.WG.Done()
		for {
			select {
			case <-ts.shutdown:
				// Server has been give the signal to shutdown
				err := ts.listener.Close()
				if err != nil {
					ts.Logger.Infof("Server closed connection to client - %s", err)
				}
				ts.closeConns()
				return
			default:
				// Poll this connection periodically
				ts.listener.SetDeadline(time.Now().Add(1 * time.Second))
			}

			conn, err := ts.listener.Accept()
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					// Deadline timeout has occurred
					continue
				}
				// There was actually an error listening
				ts.Logger.Warningf("Accepting connection at address %s - %s", ts.address, err.Error())
				continue
			}

			ts.Logger.Infof("Server opened connection to client at address %s", conn.RemoteAddr())
			ts.mutex.Lock()
			ts.conns[conn] = struct{}{}
			ts.mutex.Unlock()
			go func() {
				handler.ServeConn(conn)
				ts.mutex.Lock()
				delete(ts.conns, conn)
				ts.mutex.Unlock()
			}()
		}
	}()

	ts.Logger.Infof("Running server at address %s", ts.address)
	return nil
}

func (ts *TcpServer) Addr() string {
	return ts.address
}

// Stop closes the listener and every open connection, waiting for the accept loop to exit.
func (ts *TcpServer) Stop() error {
	ts.Logger.Infof("Shutting down server at address %s", ts.address)
	close(ts.shutdown)
	ts.WG.Wait()
	return nil
}

func (ts *TcpServer) closeConns() {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	for conn := range ts.conns {
		conn.Close()
	}
}
