// Package server is the local dashboard: store list, per-store review feed
// and reply status, plus store management actions.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/tomatocup1/reviewsync/internal/database"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the review dashboard.
type Server struct {
	db    *database.DB
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"stars":    starBar,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "store.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/stores/add", s.handleAddStore)
	s.mux.HandleFunc("/store/", s.handleStore)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stores, err := s.db.GetAllStores()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, _ := s.db.GetStats()
	lastRun, _ := s.db.GetLastRunDate()

	s.render(w, "index.html", map[string]any{
		"Stores":  stores,
		"Stats":   stats,
		"LastRun": lastRun,
	})
}

func (s *Server) handleAddStore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	platform := strings.TrimSpace(r.FormValue("platform"))
	code := strings.TrimSpace(r.FormValue("store_code"))
	name := strings.TrimSpace(r.FormValue("name"))

	if platform != "" && code != "" && name != "" {
		if _, err := s.db.InsertStore(platform, code, name, nil); err != nil {
			log.Printf("adding store: %v", err)
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleStore serves GET /store/{id} and the POST actions
// /store/{id}/toggle, /store/{id}/delete and /store/{id}/guideline.
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/store/")
	parts := strings.SplitN(path, "/", 2)

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "toggle":
			s.db.ToggleStore(id)
			http.Redirect(w, r, "/", http.StatusFound)
		case "delete":
			s.db.DeleteStore(id)
			http.Redirect(w, r, "/", http.StatusFound)
		case "guideline":
			s.db.UpdateStoreGuideline(id, strings.TrimSpace(r.FormValue("guideline")))
			http.Redirect(w, r, fmt.Sprintf("/store/%d", id), http.StatusFound)
		default:
			http.Redirect(w, r, "/", http.StatusFound)
		}
		return
	}

	store, err := s.db.GetStoreByID(id)
	if err != nil || store == nil {
		http.NotFound(w, r)
		return
	}

	reviews, _ := s.db.GetReviewsForStore(id)
	replies, _ := s.db.GetRepliesForStore(id)

	type reviewRow struct {
		Review database.Review
		Reply  *database.Reply
	}
	rows := make([]reviewRow, 0, len(reviews))
	for _, rv := range reviews {
		row := reviewRow{Review: rv}
		if rep, ok := replies[rv.ID]; ok {
			row.Reply = &rep
		}
		rows = append(rows, row)
	}

	s.render(w, "store.html", map[string]any{
		"Store":   store,
		"Reviews": rows,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// starBar renders a rating as filled/empty star glyphs. Zero means the
// extractor found no rating.
func starBar(rating float64) string {
	if rating <= 0 {
		return "평점 없음"
	}
	filled := int(rating + 0.5)
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, port int) error {
	srv, err := New(db)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Dashboard listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
