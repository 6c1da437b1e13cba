// renderer is a worker for the Mandelbrot coordinator.
// It connects to the coordinator over tcp or websocket, renders the tiles it
// is asked for and, once the image is complete, optionally saves a copy.

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"net"
	"os"
	"os/signal"

	"github.com/coder/websocket"
	"github.com/marben/irpc"
	mandel "github.com/marben/mandelgray"
)

func main() {
	addr := flag.String("addr", ":8081", "coordinator tcp address")
	wsURL := flag.String("ws", "", "coordinator websocket url, e.g. ws://localhost:8080/ws (overrides -addr)")
	out := flag.String("out", "", "save the finished image to this png file")
	verbose := flag.Bool("v", false, "log every rendered tile")
	flag.Parse()

	if err := run(*addr, *wsURL, *out, *verbose); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run(addr, wsURL, out string, verbose bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := dial(ctx, addr, wsURL)
	if err != nil {
		return err
	}
	return serve(ctx, conn, out, verbose)
}

// serve renders tiles for the coordinator on conn until the image is done.
func serve(ctx context.Context, conn net.Conn, out string, verbose bool) error {
	renderer := mandel.LocalRenderer{}
	if verbose {
		renderer.OnTileRender = func(tile image.Rectangle) { log.Printf("rendering tile: %s", tile) }
	}

	// the coordinator calls us, so the renderer service lives on our endpoint
	rendererService := mandel.NewRendererIrpcService(renderer)
	ep := irpc.NewEndpoint(conn, irpc.WithEndpointServices(rendererService))
	defer ep.Close()

	client, err := mandel.NewImgProviderIrpcClient(ep)
	if err != nil {
		return err
	}

	// GetImage returns once every tile is rendered, by us or anybody else
	packed, err := client.GetImage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("interrupted")
			return nil
		}
		return fmt.Errorf("client.GetImage: %w", err)
	}
	log.Printf("image complete")

	if out == "" {
		return nil
	}
	grid, err := packed.Grid()
	if err != nil {
		return fmt.Errorf("unpack image: %w", err)
	}
	if err := mandel.WritePNG(out, grid); err != nil {
		return err
	}
	log.Printf("fully rendered file saved to %q", out)
	return nil
}

func dial(ctx context.Context, addr, wsURL string) (net.Conn, error) {
	if wsURL != "" {
		log.Printf("connecting to %s", wsURL)
		c, _, err := websocket.Dial(ctx, wsURL, nil)
		if err != nil {
			return nil, fmt.Errorf("websocket.Dial: %w", err)
		}
		return websocket.NetConn(context.Background(), c, websocket.MessageBinary), nil
	}

	log.Printf("connecting to %s", addr)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator: %w", err)
	}
	return conn, nil
}
