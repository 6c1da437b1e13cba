package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/marben/irpc"
	mandel "github.com/marben/mandelgray"
	"github.com/marben/mandelgray/internal/config"
)

// main is the entry point for the Mandelbrot coordinator.
// It splits the grid into tiles, lets in-process and remote renderers work
// on them and writes the finished image.
func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	ts := newTileScheduler(cfg.View, cfg.TileSize)
	log.Printf("rendering %dx%d, %d iterations, %d tiles", cfg.View.Width, cfg.View.Height, cfg.View.Iterations, ts.totalTiles)

	for range cfg.LocalWorkers {
		go func() {
			if err := ts.render(mandel.LocalRenderer{}); err != nil {
				log.Printf("local renderer: %v", err)
			}
		}()
	}

	conns := newRendererConns()
	irpcServer := newRendererServer(ts, conns)

	// TCP
	log.Printf("tcp listening on %s", cfg.TCPAddr)
	tcpListener, err := net.Listen("tcp", cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}

	// WEBSOCKET
	websocketListener, httpServer := webServer(ctx, cfg.HTTPPort, ts)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("httpServer: %v", err)
		}
	}()

	// irpcServer serves both tcp and websocket renderers
	go serve(irpcServer, tcpListener)
	go serve(irpcServer, websocketListener)

	log.Printf("waiting for renderers on tcp and websocket connections")
	grid, err := ts.Wait(ctx)
	if err != nil {
		irpcServer.Close()
		return fmt.Errorf("wait for render: %w", err)
	}
	log.Printf("rendered in %s", time.Since(start))

	if err := mandel.WritePNG(cfg.Out, grid); err != nil {
		return err
	}
	log.Printf("fully rendered file saved to %q", cfg.Out)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// renderers waiting in GetImage get their copy before we hang up
	conns.drain(shutdownCtx)
	if err := irpcServer.Close(); err != nil {
		log.Printf("irpc server close: %v", err)
	}
	return httpServer.Shutdown(shutdownCtx)
}

// newRendererServer returns an irpc server providing the finished image to
// its clients and using every connected client as a renderer.
func newRendererServer(ts *tileScheduler, conns *rendererConns) *irpc.Server {
	irpcServer := irpc.NewServer(irpc.WithOnConnect(func(ep *irpc.Endpoint) {
		conns.add(ep)
		go func() {
			log.Printf("got connection from: %s", ep.RemoteAddr())

			rendererIrpcClient, err := mandel.NewRendererIrpcClient(ep)
			if err != nil {
				log.Printf("err: new Rendering client: %v", err)
				return
			}

			if err := ts.render(rendererIrpcClient); err != nil {
				log.Printf("err: render on client %q: %v", ep.RemoteAddr(), err)
			}
		}()
	}))
	irpcServer.AddService(mandel.NewImgProviderIrpcService(ts))
	return irpcServer
}

func serve(s *irpc.Server, l net.Listener) {
	if err := s.Serve(l); err != nil && !errors.Is(err, irpc.ErrServerClosed) {
		log.Printf("server.Serve %s: %v", l.Addr().Network(), err)
	}
}

// rendererConns tracks the endpoints of connected renderers.
type rendererConns struct {
	m   sync.Mutex
	eps map[*irpc.Endpoint]struct{}
}

func newRendererConns() *rendererConns {
	return &rendererConns{eps: make(map[*irpc.Endpoint]struct{})}
}

func (rc *rendererConns) add(ep *irpc.Endpoint) {
	rc.m.Lock()
	rc.eps[ep] = struct{}{}
	rc.m.Unlock()

	go func() {
		<-ep.Context().Done()
		rc.m.Lock()
		delete(rc.eps, ep)
		rc.m.Unlock()
	}()
}

func (rc *rendererConns) len() int {
	rc.m.Lock()
	defer rc.m.Unlock()
	return len(rc.eps)
}

// drain waits for the renderers connected now to hang up, or for ctx.
func (rc *rendererConns) drain(ctx context.Context) {
	rc.m.Lock()
	eps := make([]*irpc.Endpoint, 0, len(rc.eps))
	for ep := range rc.eps {
		eps = append(eps, ep)
	}
	rc.m.Unlock()

	for _, ep := range eps {
		select {
		case <-ep.Context().Done():
		case <-ctx.Done():
			log.Printf("%d renderers still connected", rc.len())
			return
		}
	}
}
