package rpc

import (
	"context"
	"fmt"
	"net/rpc"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/coder/websocket"
)

type WebsocketClient struct {
	mutex         sync.Mutex
	cancel        context.CancelFunc
	client        *rpc.Client
	serverAddress string

	Logger bslogger.Logger
	Name   string
}

func NewWebsocketClient(serverAddress string, name string) *WebsocketClient {
	return &WebsocketClient{
		serverAddress: serverAddress,
		Logger:        bslogger.NewLogger(name, bslogger.Normal, nil),
		Name:          name,
	}
}

func (wc *WebsocketClient) Connect() error {
	wc.mutex.Lock()
	defer wc.mutex.Unlock()
	if wc.client != nil {
		message := fmt.Sprintf("Already connected to server at address %s", wc.serverAddress)
		wc.Logger.Warning(message)
		return nil
	}

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDial()
	c, _, err := websocket.Dial(dialCtx, "ws://"+wc.serverAddress+WebsocketPath, nil)
	if err != nil {
		wc.Logger.Errorf("Connecting to server at address %s - %s", wc.serverAddress, err)
		return err
	}
	c.SetReadLimit(wsReadLimit)

	// The connection lives until Disconnect
	ctx, cancel := context.WithCancel(context.Background())
	wc.cancel = cancel
	wc.client = rpc.NewClient(websocket.NetConn(ctx, c, websocket.MessageBinary))
	wc.Logger.Infof("Connected to server at: %s", wc.serverAddress)
	return nil
}

func (wc *WebsocketClient) Call(method string, request interface{}, reply interface{}) error {
	wc.mutex.Lock()
	client := wc.client
	wc.mutex.Unlock()
	return call(client, &wc.Logger, wc.serverAddress, method, request, reply)
}

func (wc *WebsocketClient) Disconnect() error {
	wc.mutex.Lock()
	client, cancel := wc.client, wc.cancel
	wc.client, wc.cancel = nil, nil
	wc.mutex.Unlock()

	err := disconnect(client, &wc.Logger, wc.serverAddress)
	if cancel != nil {
		cancel()
	}
	return err
}
