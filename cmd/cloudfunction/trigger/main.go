// trigger Cloud Function starts a Databricks job run over HTTP.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	intgcpfunc "github.com/dwsmith1983/jobtrigger/internal/gcpfunc"
	inthandler "github.com/dwsmith1983/jobtrigger/internal/handler"
	"github.com/dwsmith1983/jobtrigger/internal/server/handlers"
)

var (
	deps     *intgcpfunc.Deps
	depsOnce sync.Once
	depsErr  error
)

func init() {
	functions.HTTP("Trigger", handleHTTP)
}

func getDeps() (*intgcpfunc.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = intgcpfunc.Init(context.Background())
	})
	return deps, depsErr
}

func handleHTTP(w http.ResponseWriter, r *http.Request) {
	serveTrigger(w, r, getDeps)
}

func serveTrigger(w http.ResponseWriter, r *http.Request, get func() (*intgcpfunc.Deps, error)) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	d, err := get()
	if err != nil {
		slog.Error("initialization failed", "error", err)
		resp := inthandler.Render(inthandler.OutcomeFromError(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(resp.Body))
		return
	}

	if id := r.Header.Get(intgcpfunc.ExecutionIDHeader); id != "" {
		r = r.WithContext(inthandler.WithInvocationID(r.Context(), id))
	}

	h := handlers.New(d.Handler)
	h.SetLogger(d.Logger)
	http.MaxBytesHandler(http.HandlerFunc(h.Trigger), 1<<20).ServeHTTP(w, r)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("failed to start functions framework", "error", err)
		os.Exit(1)
	}
}
