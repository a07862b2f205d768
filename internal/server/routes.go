package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saucelist/saucelist/internal/codec"
	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/pipeline"
	"github.com/saucelist/saucelist/internal/stages"
	"github.com/saucelist/saucelist/internal/storage"
)

// sauceBody is the inbound envelope for sauce submissions.
type sauceBody struct {
	Sauce *domain.SaucePayload `json:"sauce"`
}

// reviewBody is the inbound envelope for review submissions.
type reviewBody struct {
	Review *domain.ReviewPayload `json:"review"`
}

// MountRoutes wires the API routes onto the server's router. Each route is a
// fixed executor chain built once here; the chain order is the route's
// contract.
func (s *Server) MountRoutes(store storage.RecordStore, idCodec *codec.ReviewIDCodec) {
	addSauce := pipeline.NewExecutor(s.logger,
		stages.ValidateSauce{},
		stages.AddSauce{Store: store},
	)
	getSauce := pipeline.NewExecutor(s.logger,
		stages.ValidateSlugParam{},
		stages.GetSauceBySlug{Store: store},
		stages.AttachReviews{Store: store},
		stages.RelatedSauces{Store: store},
	)
	listSauces := pipeline.NewExecutor(s.logger,
		stages.ValidateQueryParams{Store: store},
		stages.ByQuery{Store: store},
		stages.AttachReviewIDs{Store: store},
		stages.Total{Store: store},
	)
	newestReviews := pipeline.NewExecutor(s.logger,
		stages.NewestReviews{Store: store},
	)
	addReview := pipeline.NewExecutor(s.logger,
		stages.ValidateReview{},
		stages.AddReview{Store: store, Codec: idCodec},
	)

	s.Router.Route("/api", func(r chi.Router) {
		r.Post("/sauce/add", s.handleAddSauce(addSauce))
		r.Get("/sauce/get/by-slug", s.handleQuery(getSauce))
		r.Get("/sauces/getByQuery", s.handleQuery(listSauces))
		r.Get("/sauces/get/by-newest", s.handleQuery(newestReviews))
		r.Post("/review/add", s.handleAddReview(addReview))
	})

	s.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{"isGood": true})
	})
	s.Router.Handle("/metrics", promhttp.Handler())
}

// handleQuery serves the GET routes: the request context carries only the
// identity and the raw query parameters.
func (s *Server) handleQuery(e *pipeline.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqCtx := s.newRequestContext(r)
		status, body := e.Run(r.Context(), pipeline.NewExchange(reqCtx, e.Chain()))
		s.writeJSON(w, status, body)
	}
}

func (s *Server) handleAddSauce(e *pipeline.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqCtx := s.newRequestContext(r)
		var body sauceBody
		// A body that fails to decode leaves the payload nil; the
		// validation stage owns the client-facing message.
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			reqCtx.SaucePayload = body.Sauce
		}
		status, reply := e.Run(r.Context(), pipeline.NewExchange(reqCtx, e.Chain()))
		s.writeJSON(w, status, reply)
	}
}

func (s *Server) handleAddReview(e *pipeline.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqCtx := s.newRequestContext(r)
		var body reviewBody
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			reqCtx.Review = body.Review
		}
		status, reply := e.Run(r.Context(), pipeline.NewExchange(reqCtx, e.Chain()))
		s.writeJSON(w, status, reply)
	}
}

func (s *Server) newRequestContext(r *http.Request) *pipeline.RequestContext {
	id := IdentityFromContext(r.Context())
	return &pipeline.RequestContext{
		UserID:   id.UserID,
		UserName: id.UserName,
		Params:   r.URL.Query(),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
