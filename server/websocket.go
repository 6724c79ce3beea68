package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/tile"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// TileRequest asks for one tile over the websocket. The optional fields override the configured
// fractal the same way the http query does.
type TileRequest struct {
	ID         int
	X          int
	Y          int
	Z          float64
	Format     string   `json:",omitempty"`
	Mode       string   `json:",omitempty"`
	Iterations int      `json:",omitempty"`
	Re         *float64 `json:",omitempty"`
	Im         *float64 `json:",omitempty"`
	Colors     []string `json:",omitempty"`
}

func (tr *TileRequest) query() url.Values {
	query := url.Values{}
	if tr.Mode != "" {
		query.Set("mode", tr.Mode)
	}
	if tr.Iterations != 0 {
		query.Set("iterations", strconv.Itoa(tr.Iterations))
	}
	if tr.Re != nil {
		query.Set("re", strconv.FormatFloat(*tr.Re, 'g', -1, 64))
	}
	if tr.Im != nil {
		query.Set("im", strconv.FormatFloat(*tr.Im, 'g', -1, 64))
	}
	if len(tr.Colors) > 0 {
		query.Set("colors", strings.Join(tr.Colors, ","))
	}
	return query
}

// TileResponse answers a TileRequest. Unless Error is set it is followed by one binary message of
// Size bytes holding the encoded tile.
type TileResponse struct {
	ID     int
	X      int
	Y      int
	Z      float64
	Format string
	Size   int
	Error  string `json:",omitempty"`
}

// handleWebsocket serves tile requests one after another until the client closes the connection.
// Closing the connection cancels the tile being rendered.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warningf("Accepting websocket from %s - %s", r.RemoteAddr, err)
		return
	}
	defer c.CloseNow()
	s.logger.Infof("Streaming tiles to %s", r.RemoteAddr)

	// The request context outlives a hijacked connection, so a failed read cancels rendering instead
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	requests := make(chan TileRequest)
	go func() {
		defer cancel()
		defer close(requests)
		for {
			var request TileRequest
			if err := wsjson.Read(ctx, c, &request); err != nil {
				status := websocket.CloseStatus(err)
				if ctx.Err() == nil && status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
					s.logger.Warningf("Reading tile request from %s - %s", r.RemoteAddr, err)
				}
				return
			}
			select {
			case requests <- request:
			case <-ctx.Done():
				return
			}
		}
	}()

	for request := range requests {
		response := TileResponse{ID: request.ID, X: request.X, Y: request.Y, Z: request.Z}
		format, err := misc.ParseImageFormat(request.Format)
		var data []byte
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		} else {
			response.Format = format.String()
			data, err = s.renderTile(ctx, tile.Coordinate{X: request.X, Y: request.Y, Z: request.Z}, format, request.query())
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, ErrBadRequest) {
				s.logger.Errorf("Rendering tile for %s - %s", r.RemoteAddr, err)
			}
			response.Error = err.Error()
		}
		response.Size = len(data)

		if err := wsjson.Write(ctx, c, response); err != nil {
			return
		}
		if response.Error != "" {
			continue
		}
		if err := c.Write(ctx, websocket.MessageBinary, data); err != nil {
			return
		}
	}
	c.Close(websocket.StatusNormalClosure, "")
}
