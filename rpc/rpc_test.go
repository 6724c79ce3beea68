package rpc

import (
	"errors"
	"net/rpc"
	"sync"
	"testing"
)

type Arith struct{}

type Args struct {
	A, B int
}

func (a *Arith) Multiply(args Args, reply *int) error {
	*reply = args.A * args.B
	return nil
}

func (a *Arith) Divide(args Args, reply *int) error {
	if args.B == 0 {
		return errors.New("divide by zero")
	}
	*reply = args.A / args.B
	return nil
}

func TestRoundTrip(t *testing.T) {
	for _, transport := range []Transport{Tcp, Http, Websocket} {
		t.Run(transport.String(), func(t *testing.T) {
			server, err := NewServer(transport, &Arith{}, "127.0.0.1:0", "TestServer")
			if err != nil {
				t.Fatalf("NewServer: %v", err)
			}
			if err := server.Run(); err != nil {
				t.Fatalf("Run: %v", err)
			}
			defer server.Stop()

			client, err := NewClient(transport, server.Addr(), "TestClient")
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			if err := client.Connect(); err != nil {
				t.Fatalf("Connect: %v", err)
			}

			var product int
			if err := client.Call("Arith.Multiply", Args{A: 6, B: 7}, &product); err != nil {
				t.Fatalf("Call: %v", err)
			}
			if product != 42 {
				t.Errorf("Multiply = %d, want 42", product)
			}

			var quotient int
			err = client.Call("Arith.Divide", Args{A: 1, B: 0}, &quotient)
			var serverErr rpc.ServerError
			if !errors.As(err, &serverErr) || err.Error() != "divide by zero" {
				t.Errorf("Divide error = %v, want the server's error", err)
			}

			if err := client.Disconnect(); err != nil {
				t.Fatalf("Disconnect: %v", err)
			}
			if err := client.Call("Arith.Multiply", Args{A: 1, B: 1}, &product); err == nil {
				t.Error("Call after Disconnect succeeded")
			}
			if err := client.Disconnect(); err == nil {
				t.Error("second Disconnect succeeded")
			}
		})
	}
}

func TestDisconnectWhileCalling(t *testing.T) {
	for _, transport := range []Transport{Tcp, Http, Websocket} {
		t.Run(transport.String(), func(t *testing.T) {
			server, err := NewServer(transport, &Arith{}, "127.0.0.1:0", "TestServer")
			if err != nil {
				t.Fatalf("NewServer: %v", err)
			}
			if err := server.Run(); err != nil {
				t.Fatalf("Run: %v", err)
			}
			defer server.Stop()

			client, err := NewClient(transport, server.Addr(), "TestClient")
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			if err := client.Connect(); err != nil {
				t.Fatalf("Connect: %v", err)
			}

			wg := sync.WaitGroup{}
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 50; j++ {
						var product int
						if err := client.Call("Arith.Multiply", Args{A: i, B: j}, &product); err == nil && product != i*j {
							t.Errorf("Multiply(%d, %d) = %d", i, j, product)
						}
					}
				}()
			}

			disconnected := make(chan error, 2)
			for i := 0; i < 2; i++ {
				go func() { disconnected <- client.Disconnect() }()
			}
			successes := 0
			for i := 0; i < 2; i++ {
				if err := <-disconnected; err == nil {
					successes++
				}
			}
			wg.Wait()

			if successes != 1 {
				t.Errorf("%d concurrent Disconnects succeeded, want 1", successes)
			}
		})
	}
}

func TestTransportText(t *testing.T) {
	var transport Transport
	if err := transport.UnmarshalText([]byte("HTTP")); err != nil || transport != Http {
		t.Errorf("UnmarshalText(HTTP) = %v, %v", transport, err)
	}
	if err := transport.UnmarshalText([]byte("udp")); !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("UnmarshalText(udp) = %v", err)
	}
	if _, err := NewServer(Transport(4), &Arith{}, "127.0.0.1:0", "x"); !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("NewServer error = %v", err)
	}
}
