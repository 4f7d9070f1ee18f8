package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sfdict/sf-data-dictionary/dictionary"
)

var ServeCmd = Serve{
	command: command{},
	port:    "",
}

// Serve runs the update as an HTTP endpoint for a scheduler (e.g. Cloud Scheduler
// invoking a Cloud Run service). Each request loads the configuration and
// credentials afresh.
type Serve struct {
	command
	port string
}

type updateFunc func(ctx context.Context) (dictionary.Report, error)

func (cmd *Serve) Name() string {
	return "serve"
}

func (cmd *Serve) Description() string {
	return "Runs an HTTP server that updates the data dictionary on request"
}

func (cmd *Serve) Usage() string {
	return "[--port <port>]"
}

func (cmd *Serve) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] serve [options]\n", APP)
	fmt.Println()
	fmt.Println("  Starts an HTTP server that updates the data dictionary worksheets for every GET /")
	fmt.Println("  request. The port defaults to $PORT (or 8080 if not set)")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %v serve --port 8081\n", APP)
	fmt.Println()
}

func (cmd *Serve) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("serve")

	flagset.StringVar(&cmd.port, "port", cmd.port, "HTTP port. Defaults to $PORT or 8080")

	return flagset
}

func (cmd *Serve) Execute(args ...any) error {
	options := args[0].(*Options)

	port := cmd.port
	if port == "" {
		port = os.Getenv("PORT")
	}

	if port == "" {
		port = "8080"
	}

	// ... validate configuration before listening
	if _, err := cmd.configure(options); err != nil {
		return err
	}

	update := func(ctx context.Context) (dictionary.Report, error) {
		s, err := cmd.connect(ctx, options)
		if err != nil {
			return dictionary.Report{}, err
		}

		return s.update(ctx, false), nil
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router(update),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		infof("listening on port %v", port)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

	case <-ctx.Done():
		infof("shutting down")

		shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
	}

	return nil
}

func router(update updateFunc) http.Handler {
	var guard sync.Mutex

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, rq *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})

	r.Get("/", func(w http.ResponseWriter, rq *http.Request) {
		if !guard.TryLock() {
			http.Error(w, "Data dictionary update already in progress", http.StatusConflict)
			return
		}
		defer guard.Unlock()

		debugf("update requested (%v)", middleware.GetReqID(rq.Context()))

		report, err := update(rq.Context())
		if err != nil {
			errorf("update failed (%v)", err)
			http.Error(w, fmt.Sprintf("Failed to update data dictionary: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if failed := report.Failed(); len(failed) > 0 {
			fmt.Fprintf(w, "Data dictionary partially updated (%v of %v objects failed)\n\n%v", len(failed), len(report.Outcomes), report)
		} else {
			fmt.Fprintf(w, "Data dictionary updated successfully\n\n%v", report)
		}
	})

	return r
}
