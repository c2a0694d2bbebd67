// Command fakeweknora serves the in-memory WeKnora stand-in for local
// development against wkctl.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hlong026/WeKnow-design/internal/fakeweknora"
	"github.com/hlong026/WeKnow-design/internal/logutil"
)

const shutdownTimeout = 5 * time.Second

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	token := flag.String("token", "", "Require this bearer token on /api routes")
	maxImport := flag.Int64("max-import-bytes", 50*1024*1024, "Reject larger backup imports with 413")
	extractDelay := flag.Duration("extract-delay", 0, "Delay social media extraction responses")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	logutil.SetLevel(*logLevel)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	srv := fakeweknora.New(fakeweknora.Options{
		Token:          *token,
		MaxImportBytes: *maxImport,
		ExtractDelay:   *extractDelay,
	})
	httpSrv := srv.Start(*addr)
	logutil.Info("fake WeKnora listening", map[string]interface{}{"addr": *addr, "auth": *token != ""})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
