package reviews

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ReviewHub/pkg/kit"
)

const MaxReviewBytes = 4096

var (
	errBadProductID  = errors.New("bad product id")
	errEmptyReview   = errors.New("review text required")
	errReviewTooLong = errors.New("review text too long")
)

type Server struct {
	Store Store
	Log   *zap.Logger

	// Limiter, when set, throttles review submissions per client IP.
	Limiter *kit.IPRateLimiter
}

type reviewReq struct {
	Text string `json:"text"`
}

type reviewResp struct {
	ProductID int    `json:"product_id"`
	Text      string `json:"text"`
}

type reviewsResp struct {
	ProductID int      `json:"product_id"`
	Reviews   []string `json:"reviews"`
}

type latestResp struct {
	ProductID int    `json:"product_id"`
	Review    string `json:"review"`
}

type reviewedResp struct {
	ProductIDs []int `json:"product_ids"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthz)
	r.Get("/readyz", healthz)

	r.Get("/products/reviewed", s.reviewed)
	r.Put("/products/{id}", s.addProduct)
	r.Delete("/products/{id}", s.removeProduct)
	r.Get("/products/{id}/reviews", s.allReviews)
	r.Get("/products/{id}/reviews/latest", s.latestReview)

	submit := chi.Router(r)
	if s.Limiter != nil {
		submit = r.With(s.Limiter.Middleware)
	}
	submit.Post("/products/{id}/reviews", s.addReview)

	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s.Store.AddProduct(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s.Store.RemoveProduct(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addReview(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req reviewReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	text, err := normalizeReview(req.Text)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}

	s.Store.AddReview(id, text)
	if s.Log != nil {
		s.Log.Debug("review added", zap.Int("product_id", id), zap.Int("bytes", len(text)))
	}
	kit.WriteJSON(w, http.StatusCreated, reviewResp{ProductID: id, Text: text})
}

func (s *Server) allReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, reviewsResp{ProductID: id, Reviews: s.Store.AllReviews(id)})
}

func (s *Server) latestReview(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	text, found := s.Store.LatestReview(id)
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "no reviews", map[string]any{"product_id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, latestResp{ProductID: id, Review: text})
}

func (s *Server) reviewed(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, reviewedResp{ProductIDs: s.Store.ProductsWithReviews()})
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, errBadProductID.Error(), map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

func normalizeReview(text string) (string, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return "", errEmptyReview
	case len(text) > MaxReviewBytes:
		return "", errReviewTooLong
	}
	return text, nil
}

func (s *Server) writeReviewError(w http.ResponseWriter, r *http.Request, err error) {
	switch err {
	case errEmptyReview:
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errReviewTooLong:
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), map[string]any{"max_bytes": MaxReviewBytes})
	default:
		if s.Log != nil {
			s.Log.Error("add review failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
