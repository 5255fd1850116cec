// ABOUTME: Handlers for the menu HTTP API.
// ABOUTME: Maps service results to JSON and service errors to status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/harperreed/littlelemon/internal/models"
	"github.com/harperreed/littlelemon/internal/remote"
)

// MenuItemView is a menu item as the API returns it.
type MenuItemView struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	DisplayPrice  string `json:"displayPrice"`
	Category      string `json:"category"`
	ImageFileName string `json:"imageFileName"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// CategoryView is one category chip.
type CategoryView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ListMenuHandler answers GET /menu?q=text&category=a&category=b.
func (s *Server) ListMenuHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.Filter{Text: q.Get("q")}
	for _, c := range q["category"] {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Categories = append(f.Categories, part)
			}
		}
	}

	items, err := s.svc.Search(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]MenuItemView, len(items))
	for i, m := range items {
		views[i] = s.view(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views, "count": len(views)})
}

// CategoriesHandler answers GET /categories with the known chips in display
// order and how many cached dishes each holds.
func (s *Server) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Search(r.Context(), models.Filter{})
	if err != nil {
		s.writeError(w, err)
		return
	}
	counts := make(map[string]int)
	for _, m := range items {
		counts[m.Category]++
	}

	out := make([]CategoryView, len(models.AllCategories))
	for i, c := range models.AllCategories {
		name := string(c)
		out[i] = CategoryView{Name: name, Label: models.CategoryLabel(name), Count: counts[name]}
	}
	writeJSON(w, http.StatusOK, out)
}

// ImageHandler redirects to the remote image for a file name.
func (s *Server) ImageHandler(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	target := s.imageURL(file)
	if target == "" {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// RefreshHandler forces a refetch and replaces the cache.
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Refresh(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": res.Count, "generation": res.Generation})
}

func (s *Server) view(m models.MenuItem) MenuItemView {
	return MenuItemView{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		Price:         m.Price,
		DisplayPrice:  m.DisplayPrice(),
		Category:      m.Category,
		ImageFileName: m.ImageFileName,
		ImageURL:      s.imageURL(m.ImageFileName),
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, remote.ErrFetch) {
		status = http.StatusBadGateway
	}
	s.logger.Error("request failed", "status", status, "err", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
