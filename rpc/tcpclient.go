package rpc

import (
	"errors"
	"fmt"
	"net/rpc"
	"sync"

	"github.com/BrugadaSyndrome/bslogger"
)

type TcpClient struct {
	mutex         sync.Mutex
	client        *rpc.Client
	serverAddress string

	Logger bslogger.Logger
	Name   string
}

func NewTcpClient(serverAddress string, name string) *TcpClient {
	return &TcpClient{
		serverAddress: serverAddress,
		Name:          name,
		Logger:        bslogger.NewLogger(name, bslogger.Normal, nil),
	}
}

func (tc *TcpClient) Connect() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	if tc.client != nil {
		message := fmt.Sprintf("Already connected to server at address %s", tc.serverAddress)
		tc.Logger.Warning(message)
		return nil
	}

	var err error
	tc.client, err = rpc.Dial("tcp", tc.serverAddress)
	if err != nil {
		tc.Logger.Errorf("Connecting to server at address %s", tc.serverAddress)
		return err
	}
	tc.Logger.Infof("Connected to server at: %s", tc.serverAddress)
	return nil
}

func (tc *TcpClient) Call(method string, request interface{}, reply interface{}) error {
	tc.mutex.Lock()
	client := tc.client
	tc.mutex.Unlock()
	return call(client, &tc.Logger, tc.serverAddress, method, request, reply)
}

func (tc *TcpClient) Disconnect() error {
	tc.mutex.Lock()
	client := tc.client
	tc.client = nil
	tc.mutex.Unlock()
	return disconnect(client, &tc.Logger, tc.serverAddress)
}

func call(client *rpc.Client, logger *bslogger.Logger, address string, method string, request interface{}, reply interface{}) error {
	if client == nil {
		message := fmt.Sprintf("Not connected to server at address %s : method %s", address, method)
		logger.Error(message)
		return errors.New(message)
	}

	err := client.Call(method, request, reply)
	if err != nil {
		// Errors returned by the remote method are part of its protocol, only transport failures are logged
		var serverErr rpc.ServerError
		if errors.As(err, &serverErr) {
			logger.Debugf("Server at address %s answered %s with: %s", address, method, err)
			return err
		}
		logger.Errorf("Calling server at address: %s, method: %s - %s", address, method, err)
		return err
	}
	logger.Debugf("Calling server [%s] %s", address, method)
	return nil
}

func disconnect(client *rpc.Client, logger *bslogger.Logger, address string) error {
	if client == nil {
		message := fmt.Sprintf("Already disconnected from server at address %s", address)
		logger.Warning(message)
		return errors.New(message)
	}

	err := client.Close()
	if err != nil {
		logger.Errorf("Disconnecting from server at address %s", address)
		return err
	}
	logger.Infof("Disconnected from server at %s", address)
	return nil
}
