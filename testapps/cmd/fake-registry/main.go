package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-go-golems/registryctl/pkg/fakeregistry"
)

func main() {
	var port int
	var fixture string
	var latency time.Duration
	flag.IntVar(&port, "port", 0, "Port to listen on (0 for ephemeral)")
	flag.StringVar(&fixture, "fixture", "", "JSON fixture to load instead of the built-in seed data")
	flag.DurationVar(&latency, "latency", 0, "Delay added to every API response")
	flag.Parse()

	if port == 0 {
		if v := os.Getenv("FAKE_REGISTRY_PORT"); v != "" {
			_, _ = fmt.Sscanf(v, "%d", &port)
		}
	}

	fake := fakeregistry.New()
	if fixture != "" {
		if err := fake.LoadFixture(fixture); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixture error: %v\n", err)
			os.Exit(2)
		}
	} else {
		fake.Seed()
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "listen error: %v\n", err)
		os.Exit(2)
	}
	actualAddr := ln.Addr().String()
	_, _ = fmt.Fprintf(os.Stderr, "listening on http://%s (repository %s)\n", actualAddr, fakeregistry.TestRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if latency > 0 {
			time.Sleep(latency)
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s %s\n", r.Method, r.URL.RequestURI())
		fake.ServeHTTP(w, r)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		_, _ = fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		os.Exit(3)
	}
}
