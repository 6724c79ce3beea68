package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/coder/websocket"
)

// WebsocketPath is where a WebsocketServer accepts rpc connections.
const WebsocketPath = "/rpc"

// wsReadLimit bounds one websocket message. Task results carry encoded tiles, so it is generous.
const wsReadLimit = 64 << 20

// WebsocketServer serves rpc over websocket connections, each one wrapped as a net.Conn.
type WebsocketServer struct {
	address  string
	listener *websocketListener
	object   interface{}
	server   *http.Server

	Logger bslogger.Logger
	Name   string
	WG     *sync.WaitGroup
}

func NewWebsocketServer(object interface{}, address string, name string) *WebsocketServer {
	return &WebsocketServer{
		address: address,
		object:  object,
		Logger:  bslogger.NewLogger(name, bslogger.Normal, nil),
		Name:    name,
		WG:      &sync.WaitGroup{},
	}
}

func (ws *WebsocketServer) Run() error {
	handler := rpc.NewServer()
	err := handler.Register(ws.object)
	if err != nil {
		ws.Logger.Error("Registering object")
		return err
	}

	tcpListener, err := net.Listen("tcp", ws.address)
	if err != nil {
		ws.Logger.Errorf("Listening at address %s", ws.address)
		return err
	}
	ws.address = tcpListener.Addr().String()
	ws.listener = newWebsocketListener(ws.address)

	mux := http.NewServeMux()
	mux.HandleFunc(WebsocketPath, ws.accept)
	ws.server = &http.Server{Addr: ws.address, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ws.WG.Add(2)
	go func() {
		defer ws.WG.Done()
		if err := ws.server.Serve(tcpListener); !errors.Is(err, http.ErrServerClosed) {
			ws.Logger.Errorf("Error serving at address %s - %s", ws.address, err)
		}
	}()
	go func() {
		defer ws.WG.Done()
		for {
			conn, err := ws.listener.Accept()
			if err != nil {
				return
			}
			ws.Logger.Infof("Server opened connection to client at address %s", conn.RemoteAddr())
			go handler.ServeConn(conn)
		}
	}()

	ws.Logger.Infof("Running server at address %s", ws.address)
	return nil
}

func (ws *WebsocketServer) accept(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		ws.Logger.Warningf("Accepting websocket from %s - %s", r.RemoteAddr, err)
		return
	}
	c.SetReadLimit(wsReadLimit)

	select {
	case ws.listener.ch <- c:
	case <-ws.listener.ctx.Done():
		c.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (ws *WebsocketServer) Addr() string {
	return ws.address
}

// Stop closes the http server and every websocket connection handed to rpc.
func (ws *WebsocketServer) Stop() error {
	ws.listener.Close()
	if err := ws.server.Shutdown(context.Background()); err != nil {
		ws.Logger.Errorf("Shutting down server at address %s", ws.address)
		return err
	}
	ws.Logger.Infof("Shutting down server at address %s", ws.address)
	ws.WG.Wait()
	return nil
}

// websocketListener implements net.Listener on top of accepted websocket connections. Cancelling
// its context closes every connection it produced.
type websocketListener struct {
	addr   wsAddr
	cancel context.CancelFunc
	ch     chan *websocket.Conn
	ctx    context.Context
}

func newWebsocketListener(addr string) *websocketListener {
	ctx, cancel := context.WithCancel(context.Background())
	return &websocketListener{
		addr:   wsAddr{addr: addr + WebsocketPath},
		cancel: cancel,
		ch:     make(chan *websocket.Conn),
		ctx:    ctx,
	}
}

func (l *websocketListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.ch:
		return websocket.NetConn(l.ctx, c, websocket.MessageBinary), nil
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	}
}

func (l *websocketListener) Addr() net.Addr {
	return l.addr
}

func (l *websocketListener) Close() error {
	l.cancel()
	return nil
}

type wsAddr struct {
	addr string
}

func (a wsAddr) Network() string {
	return "ws"
}

func (a wsAddr) String() string {
	return a.addr
}
