package rpc

import (
	"fmt"
	"net/rpc"
	"sync"

	"github.com/BrugadaSyndrome/bslogger"
)

type HttpClient struct {
	mutex         sync.Mutex
	serverAddress string
	client        *rpc.Client

	Logger bslogger.Logger
	Name   string
}

func NewHttpClient(serverAddress string, name string) *HttpClient {
	return &HttpClient{
		serverAddress: serverAddress,
		Logger:        bslogger.NewLogger(name, bslogger.Normal, nil),
		Name:          name,
	}
}

func (hc *HttpClient) Connect() error {
	hc.mutex.Lock()
	defer hc.mutex.Unlock()
	if hc.client != nil {
		message := fmt.Sprintf("Already connected to server at address %s", hc.serverAddress)
		hc.Logger.Warning(message)
		return nil
	}

	var err error
	hc.client, err = rpc.DialHTTP("tcp", hc.serverAddress)
	if err != nil {
		hc.Logger.Errorf("Error connecting to server at address %s : %s", hc.serverAddress, err)
		return err
	}
	hc.Logger.Infof("Connected to server at %s", hc.serverAddress)
	return nil
}

func (hc *HttpClient) Call(method string, request interface{}, reply interface{}) error {
	hc.mutex.Lock()
	client := hc.client
	hc.mutex.Unlock()
	return call(client, &hc.Logger, hc.serverAddress, method, request, reply)
}

func (hc *HttpClient) Disconnect() error {
	hc.mutex.Lock()
	client := hc.client
	hc.client = nil
	hc.mutex.Unlock()
	return disconnect(client, &hc.Logger, hc.serverAddress)
}
