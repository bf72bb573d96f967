package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"merfie/app/internal/content"
	"merfie/app/internal/db"
	"merfie/app/internal/search"
)

const errorFallbackMessage = "We couldn't process your request right now."

type searchInput struct {
	Type     string `query:"type" doc:"Restrict results to one content type"`
	Query    string `query:"q" doc:"Search term; blank lists newest content first"`
	Page     int    `query:"page" doc:"1-based page number"`
	PageSize int    `query:"pageSize" doc:"Results per page"`
}

type searchOutput struct {
	Body *search.Page
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerSearchRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search-content",
		Method:      stdhttp.MethodGet,
		Path:        "/api/search",
		Summary:     "Search content",
		Tags:        []string{"search"},
	}, s.searchHandler)
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) searchHandler(ctx context.Context, input *searchInput) (*searchOutput, error) {
	req := search.Request{
		Term:     strings.TrimSpace(input.Query),
		Page:     input.Page,
		PageSize: input.PageSize,
	}

	if raw := strings.TrimSpace(input.Type); raw != "" {
		contentType, err := content.ParseContentType(raw)
		if err != nil {
			return nil, s.apiError(ctx, err, "parsing content type filter", logrus.Fields{"type": raw})
		}
		req.ContentType = &contentType
	}

	page, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, s.apiError(ctx, err, "search request failed", logrus.Fields{"query": req.Term})
	}

	return &searchOutput{Body: page}, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

// classifyError maps domain failures onto HTTP statuses and client-safe messages.
func classifyError(err error) (int, string) {
	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case errors.Is(err, content.ErrNotFound):
		return stdhttp.StatusNotFound, "Content not found."
	case errors.Is(err, content.ErrSlugTaken):
		return stdhttp.StatusConflict, "Another item already uses that slug."
	case errors.Is(err, content.ErrInvalidContentType):
		return stdhttp.StatusBadRequest, "Unknown content type."
	case errors.Is(err, content.ErrTitleRequired):
		return stdhttp.StatusBadRequest, "A title is required."
	case errors.Is(err, content.ErrInvalidSlug):
		return stdhttp.StatusBadRequest, "The title must contain at least one letter or digit."
	case errors.Is(err, content.ErrTagRequired):
		return stdhttp.StatusBadRequest, "Tag labels must not be blank."
	case errors.Is(err, content.ErrInvalidImage):
		return stdhttp.StatusBadRequest, "All image sizes are required and focal points must be between 0 and 100."
	case errors.Is(err, content.ErrInvalidSystem):
		return stdhttp.StatusBadRequest, "System names must be between 2 and 100 characters."
	case errors.Is(err, content.ErrCampaignOnly):
		return stdhttp.StatusBadRequest, "Campaign details can only be set on campaigns."
	case content.IsIndexError(err):
		return stdhttp.StatusInternalServerError, "The search index could not be updated; nothing was saved."
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

// apiError records err when it is a server fault and converts it into a Huma status error.
func (s *Server) apiError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	status, detail := classifyError(err)
	if status >= stdhttp.StatusInternalServerError {
		s.recordError(ctx, err, message, fields)
	}
	return huma.NewError(status, detail)
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
