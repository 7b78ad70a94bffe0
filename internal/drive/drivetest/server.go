// Package drivetest provides an in-memory fake of the Drive v3 endpoints
// used by the drive package.
package drivetest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

type File struct {
	ID       string
	Name     string
	Parent   string
	MimeType string
	Content  []byte
	Trashed  bool
}

// Server records every call it receives. Use Fail to make an endpoint
// answer with an error status.
type Server struct {
	*httptest.Server

	token string

	mu         sync.Mutex
	files      []*File
	queries    int
	updates    int
	creates    int
	nextID     int
	failQuery  int
	failUpdate int
	failCreate int
}

var queryPattern = regexp.MustCompile(`^name = '((?:[^'\\]|\\.)*)' and '((?:[^'\\]|\\.)*)' in parents and trashed = false$`)

var unescaper = regexp.MustCompile(`\\(.)`)

// NewServer starts a fake Drive accepting bearer token.
func NewServer(token string) *Server {
	s := &Server{token: token}

	r := mux.NewRouter()
	r.HandleFunc("/drive/v3/files", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/upload/drive/v3/files/{id}", s.handleUpdate).Methods(http.MethodPatch).Queries("uploadType", "media")
	r.HandleFunc("/upload/drive/v3/files", s.handleCreate).Methods(http.MethodPost).Queries("uploadType", "multipart")
	r.Use(s.authorize)

	s.Server = httptest.NewServer(r)
	return s
}

// AddFile seeds a file and returns it.
func (s *Server) AddFile(f File) *File {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = s.newID()
	}
	file := f
	s.files = append(s.files, &file)
	return &file
}

// Fail makes op ("query", "update" or "create") answer with status. A zero
// status clears the failure.
func (s *Server) Fail(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch op {
	case "query":
		s.failQuery = status
	case "update":
		s.failUpdate = status
	case "create":
		s.failCreate = status
	}
}

// Files returns copies of all files in creation order.
func (s *Server) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, *f)
	}
	return out
}

func (s *Server) Calls() (queries, updates, creates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries, s.updates, s.creates
}

func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("file-%d", s.nextID)
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++

	if s.failQuery != 0 {
		http.Error(w, "query failed", s.failQuery)
		return
	}

	m := queryPattern.FindStringSubmatch(r.URL.Query().Get("q"))
	if m == nil {
		http.Error(w, "unsupported query", http.StatusBadRequest)
		return
	}
	name := unescaper.ReplaceAllString(m[1], "$1")
	parent := unescaper.ReplaceAllString(m[2], "$1")

	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	files := []entry{}
	for _, f := range s.files {
		if f.Name == name && f.Parent == parent && !f.Trashed {
			files = append(files, entry{ID: f.ID, Name: f.Name})
			if r.URL.Query().Get("pageSize") == "1" {
				break
			}
		}
	}
	writeJSON(w, map[string]any{"files": files})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++

	if s.failUpdate != 0 {
		http.Error(w, "update failed", s.failUpdate)
		return
	}

	id := mux.Vars(r)["id"]
	for _, f := range s.files {
		if f.ID != id {
			continue
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Content = body
		writeJSON(w, map[string]string{"id": f.ID, "name": f.Name})
		return
	}
	http.Error(w, "file not found", http.StatusNotFound)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++

	if s.failCreate != 0 {
		http.Error(w, "create failed", s.failCreate)
		return
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/related" {
		http.Error(w, "expected multipart/related", http.StatusBadRequest)
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	if err != nil || !strings.HasPrefix(metaPart.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "missing metadata part", http.StatusBadRequest)
		return
	}
	var meta struct {
		Name     string   `json:"name"`
		Parents  []string `json:"parents"`
		MimeType string   `json:"mimeType"`
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		http.Error(w, "bad metadata", http.StatusBadRequest)
		return
	}

	mediaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, "missing media part", http.StatusBadRequest)
		return
	}
	content, err := io.ReadAll(mediaPart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f := &File{ID: s.newID(), Name: meta.Name, MimeType: meta.MimeType, Content: content}
	if len(meta.Parents) > 0 {
		f.Parent = meta.Parents[0]
	}
	s.files = append(s.files, f)
	writeJSON(w, map[string]string{"id": f.ID, "name": f.Name, "mimeType": f.MimeType})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
