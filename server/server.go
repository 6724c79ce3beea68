// Package server renders tiles on demand over http, and streams them over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/besen/fractiles/mandelbrot"
	"github.com/besen/fractiles/misc"
	"github.com/besen/fractiles/palette"
	"github.com/besen/fractiles/swatch"
	"github.com/besen/fractiles/tile"
)

// maxPreviewHeight bounds the scaled palette preview.
const maxPreviewHeight = 4096

// ErrBadRequest marks errors caused by the request rather than the server.
var ErrBadRequest = errors.New("bad request")

type Server struct {
	address    string
	httpServer *http.Server
	logger     bslogger.Logger
	mux        *http.ServeMux
	renderer   *mandelbrot.Renderer
	settings   Settings

	WG *sync.WaitGroup
}

func NewServer(settings Settings) (*Server, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	renderer, err := mandelbrot.NewRenderer(settings.MandelbrotSettings)
	if err != nil {
		return nil, err
	}

	s := &Server{
		address:  settings.Address,
		logger:   bslogger.NewLogger("TileServer", bslogger.Normal, nil),
		mux:      http.NewServeMux(),
		renderer: renderer,
		settings: settings,
		WG:       &sync.WaitGroup{},
	}
	s.mux.HandleFunc("GET /tiles/{z}/{x}/{file}", s.handleTile)
	s.mux.HandleFunc("GET /palette.png", s.handlePalette)
	s.mux.HandleFunc("GET /texture.png", s.handleTexture)
	s.mux.HandleFunc("GET /locate", s.handleLocate)
	s.mux.HandleFunc("GET /ws", s.handleWebsocket)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Run() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Errorf("Listening at address %s", s.address)
		return err
	}
	s.address = listener.Addr().String()

	s.httpServer = &http.Server{
		Addr:              s.address,
		Handler:           s.mux,
		ReadHeaderTimeout: time.Duration(s.settings.ReadHeaderTimeout) * time.Second,
	}
	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("Error serving at address %s - %s", s.address, err)
		}
	}()

	s.logger.Infof("Serving tiles at http://%s/tiles/{z}/{x}/{y}.png", s.address)
	return nil
}

func (s *Server) Addr() string {
	return s.address
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Infof("Shutting down server at address %s", s.address)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.WG.Wait()
	return nil
}

// rendererFor applies the query overrides mode, iterations, re, im and colors on top of the
// configured settings. Without overrides the shared renderer is reused.
func (s *Server) rendererFor(query url.Values) (*mandelbrot.Renderer, error) {
	overrides := false
	settings := s.settings.MandelbrotSettings

	if v := query.Get("mode"); v != "" {
		mode, err := mandelbrot.ParseMode(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		settings.Mode = mode
		overrides = true
	}
	if v := query.Get("iterations"); v != "" {
		iterations, err := strconv.Atoi(v)
		if err != nil || iterations <= 0 {
			return nil, fmt.Errorf("%w: %w: %q", ErrBadRequest, mandelbrot.ErrInvalidIterations, v)
		}
		if iterations > s.settings.MaxIterations {
			return nil, fmt.Errorf("%w: %w: %d is above the limit of %d", ErrBadRequest, mandelbrot.ErrInvalidIterations, iterations, s.settings.MaxIterations)
		}
		settings.MaxIterations = iterations
		overrides = true
	}
	for name, target := range map[string]*float64{"re": &settings.JuliaReal, "im": &settings.JuliaImag} {
		if v := query.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrBadRequest, name, err)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: %s must be finite, got %q", ErrBadRequest, name, v)
			}
			*target = f
			overrides = true
		}
	}
	if v := query.Get("colors"); v != "" {
		settings.ControlColors = strings.Split(v, ",")
		settings.Anchors = nil
		overrides = true
	}

	if !overrides {
		return s.renderer, nil
	}
	renderer, err := mandelbrot.NewRenderer(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return renderer, nil
}

// parseTile reads "{z}", "{x}" and "{y}.{ext}" path segments.
func parseTile(z string, x string, file string) (tile.Coordinate, misc.ImageFormat, error) {
	name, ext, found := strings.Cut(file, ".")
	if !found {
		ext = "png"
	}
	format, err := misc.ParseImageFormat(ext)
	if err != nil {
		return tile.Coordinate{}, 0, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	var c tile.Coordinate
	if c.Z, err = strconv.ParseFloat(z, 64); err != nil {
		return c, 0, fmt.Errorf("%w: zoom %q", ErrBadRequest, z)
	}
	if c.X, err = strconv.Atoi(x); err != nil {
		return c, 0, fmt.Errorf("%w: column %q", ErrBadRequest, x)
	}
	if c.Y, err = strconv.Atoi(name); err != nil {
		return c, 0, fmt.Errorf("%w: row %q", ErrBadRequest, name)
	}
	return c, format, nil
}

// renderTile renders and encodes one tile. Errors caused by the request wrap ErrBadRequest.
func (s *Server) renderTile(ctx context.Context, c tile.Coordinate, format misc.ImageFormat, query url.Values) ([]byte, error) {
	renderer, err := s.rendererFor(query)
	if err != nil {
		return nil, err
	}
	img, err := renderer.RenderTile(ctx, c)
	if errors.Is(err, tile.ErrDegenerateWindow) || errors.Is(err, tile.ErrInvalidZoom) {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err != nil {
		return nil, err
	}
	return misc.EncodeImage(img, format)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	c, format, err := parseTile(r.PathValue("z"), r.PathValue("x"), r.PathValue("file"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := s.renderTile(r.Context(), c, format, r.URL.Query())
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away
			return
		}
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
	s.logger.Debugf("Served tile %s as %s", c.String(), format)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	renderer, err := s.rendererFor(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	width := swatch.StripWidth
	if v := r.URL.Query().Get("width"); v != "" {
		if width, err = strconv.Atoi(v); err != nil || width <= 0 || width > palette.Size {
			s.writeError(w, fmt.Errorf("%w: width %q", ErrBadRequest, v))
			return
		}
	}

	var img image.Image = swatch.Strip(renderer.Palette(), width).ToImage()
	if v := r.URL.Query().Get("height"); v != "" {
		height, err := strconv.Atoi(v)
		if err != nil || height <= 0 || height > maxPreviewHeight {
			s.writeError(w, fmt.Errorf("%w: height %q", ErrBadRequest, v))
			return
		}
		img = swatch.Preview(renderer.Palette(), width, height)
	}
	s.writePNG(w, img)
}

// handleTexture serves the 256x1 lookup texture, slot i at column i.
func (s *Server) handleTexture(w http.ResponseWriter, r *http.Request) {
	renderer, err := s.rendererFor(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePNG(w, swatch.Texture(renderer.Palette()))
}

func (s *Server) writePNG(w http.ResponseWriter, img image.Image) {
	data, err := misc.EncodeImage(img, misc.PNG)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", misc.PNG.ContentType())
	w.Write(data)
}

type location struct {
	X      int
	Y      int
	Z      int
	Window tile.Window
}

// handleLocate answers which tile of level z holds the point re + im·i.
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	re, errRe := strconv.ParseFloat(query.Get("re"), 64)
	im, errIm := strconv.ParseFloat(query.Get("im"), 64)
	z, errZ := strconv.Atoi(query.Get("z"))
	if errRe != nil || errIm != nil || errZ != nil || z < 0 {
		s.writeError(w, fmt.Errorf("%w: locate needs re, im and a non-negative integer z", ErrBadRequest))
		return
	}
	if math.IsNaN(re) || math.IsInf(re, 0) || math.IsNaN(im) || math.IsInf(im, 0) {
		s.writeError(w, fmt.Errorf("%w: locate needs a finite point, got %g%+gi", ErrBadRequest, re, im))
		return
	}

	mapper := s.renderer.Mapper()
	c := mapper.Locate(complex(re, im), z)
	window, err := mapper.Map(c)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(location{X: c.X, Y: c.Y, Z: z, Window: window})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrBadRequest) {
		status = http.StatusBadRequest
	} else {
		s.logger.Errorf("Serving request - %s", err)
	}
	http.Error(w, err.Error(), status)
}
