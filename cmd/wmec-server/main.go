// Command wmec-server runs the WMEC HTTP surface, wiring
// bootstrap.NewService's Catalog/Resolver/Auth into internal/httpapi's
// router, the way the teacher's functions/*/cmd mains wire a single
// function into funcframework.Start.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/supergeri/workoutcanonicalmapper/internal/bootstrap"
	"github.com/supergeri/workoutcanonicalmapper/internal/httpapi"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
	fsstore "github.com/supergeri/workoutcanonicalmapper/internal/store/firestore"
)

func main() {
	ctx := context.Background()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		log.Fatalf("bootstrap.NewService: %v", err)
	}
	if client := svc.FirestoreClient(); client != nil {
		mappings := fsstore.NewMappingStore(client)
		svc.Resolver = resolver.New(svc.Catalog, mappings, mappings)
		svc.Resolver.FuzzyThreshold = svc.Config.FuzzyDefaultThreshold
	}

	addr := os.Getenv("PORT")
	if addr == "" {
		addr = "8080"
	}
	if addr[0] != ':' {
		addr = ":" + addr
	}

	router := httpapi.NewRouter(svc)
	svc.Logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		svc.Logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
