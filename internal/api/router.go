package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/antrepo/internal/api/middleware"
	"github.com/example/antrepo/internal/auth"
)

func NewRouter(handlers *Handlers, jwtService *auth.JWTService, health func(context.Context) error) http.Handler {
	mux := http.NewServeMux()

	// Lots
	mux.HandleFunc("/lots", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListLots(w, r)
		case http.MethodPost:
			handlers.CreateLot(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/lots/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetLot(w, r)
		case http.MethodPatch:
			handlers.UpdateLot(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Custody entries
	mux.HandleFunc("/entries", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListEntries(w, r)
		case http.MethodPost:
			handlers.CreateEntry(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/entries/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/transfer") && r.Method == http.MethodPost:
			handlers.Transfer(w, r)
		case strings.HasSuffix(path, "/exits") && r.Method == http.MethodPost:
			handlers.RecordExit(w, r)
		case r.Method == http.MethodGet:
			handlers.GetEntry(w, r)
		case r.Method == http.MethodDelete:
			handlers.ArchiveEntry(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Exits
	mux.HandleFunc("/exits", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListExits(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Pending arrivals
	mux.HandleFunc("/arrivals", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.PendingArrivals(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Handling requests
	mux.HandleFunc("/handling", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListRequests(w, r)
		case http.MethodPost:
			handlers.CreateRequest(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/handling/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/submit") && r.Method == http.MethodPost:
			handlers.Submit(w, r)
		case strings.HasSuffix(path, "/pickup") && r.Method == http.MethodPost:
			handlers.Pickup(w, r)
		case strings.HasSuffix(path, "/start") && r.Method == http.MethodPost:
			handlers.Start(w, r)
		case strings.HasSuffix(path, "/complete") && r.Method == http.MethodPost:
			handlers.Complete(w, r)
		case strings.HasSuffix(path, "/confirm") && r.Method == http.MethodPost:
			handlers.Confirm(w, r)
		case strings.HasSuffix(path, "/reject") && r.Method == http.MethodPost:
			handlers.RejectResult(w, r)
		case strings.HasSuffix(path, "/cancel") && r.Method == http.MethodPost:
			handlers.Cancel(w, r)
		case strings.HasSuffix(path, "/permits") && r.Method == http.MethodGet:
			handlers.ListPermits(w, r)
		case strings.HasSuffix(path, "/costs") && r.Method == http.MethodGet:
			handlers.ListCosts(w, r)
		case strings.HasSuffix(path, "/costs") && r.Method == http.MethodPost:
			handlers.AddCost(w, r)
		case strings.HasSuffix(path, "/documents") && r.Method == http.MethodGet:
			handlers.ListDocuments(w, r)
		case strings.HasSuffix(path, "/documents") && r.Method == http.MethodPost:
			handlers.AddDocument(w, r)
		case r.Method == http.MethodGet:
			handlers.GetRequest(w, r)
		case r.Method == http.MethodPatch:
			handlers.UpdateDraft(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Permit decisions
	mux.HandleFunc("/permits/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/approve") && r.Method == http.MethodPost:
			handlers.ApprovePermit(w, r)
		case strings.HasSuffix(path, "/reject") && r.Method == http.MethodPost:
			handlers.RejectPermit(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Documents
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			handlers.DeleteDocument(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	protected := middleware.AuthMiddleware(jwtService)(mux)

	// Health check stays outside auth so load balancers can reach it.
	root := http.NewServeMux()
	root.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if health != nil {
			if err := health(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Handle("/", protected)

	return withLogging(root)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
