package rpc

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Tcp Transport = iota
	Http
	Websocket
)

var ErrUnknownTransport = errors.New("unknown rpc transport")

// Transport selects how rpc requests travel: a raw tcp stream, http CONNECT or binary websocket
// messages.
type Transport int

func (t Transport) String() string {
	switch t {
	case Tcp:
		return "tcp"
	case Http:
		return "http"
	case Websocket:
		return "websocket"
	}
	return fmt.Sprintf("Transport(%d)", int(t))
}

func (t Transport) MarshalText() ([]byte, error) {
	if t < Tcp || t > Websocket {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTransport, int(t))
	}
	return []byte(t.String()), nil
}

func (t *Transport) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "tcp":
		*t = Tcp
	case "http":
		*t = Http
	case "websocket", "ws":
		*t = Websocket
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, text)
	}
	return nil
}

type Server interface {
	Run() error
	Stop() error
	Addr() string
}

type Client interface {
	Connect() error
	Call(method string, request interface{}, reply interface{}) error
	Disconnect() error
}

func NewServer(transport Transport, object interface{}, address string, name string) (Server, error) {
	switch transport {
	case Tcp:
		return NewTcpServer(object, address, name), nil
	case Http:
		return NewHttpServer(object, address, name), nil
	case Websocket:
		return NewWebsocketServer(object, address, name), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTransport, int(transport))
}

func NewClient(transport Transport, serverAddress string, name string) (Client, error) {
	switch transport {
	case Tcp:
		return NewTcpClient(serverAddress, name), nil
	case Http:
		return NewHttpClient(serverAddress, name), nil
	case Websocket:
		return NewWebsocketClient(serverAddress, name), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTransport, int(transport))
}
