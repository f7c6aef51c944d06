package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/engine"
	"github.com/matheusschuckar/look-pro/feedback"
	"github.com/matheusschuckar/look-pro/filter"
	"github.com/matheusschuckar/look-pro/prefs"
)

type RankRequest struct {
	UserID     string            `json:"user_id" validate:"required"`
	Scene      string            `json:"scene"`
	Seed       *uint32           `json:"seed"`
	Explore    *bool             `json:"explore"`
	Criteria   *filter.Criteria  `json:"criteria"`
	Limit      int               `json:"limit" validate:"gte=0"`
	Candidates []*core.Candidate `json:"candidates" validate:"required"`
}

type RankResponse struct {
	Items []*core.Candidate `json:"items"`
	Seed  uint32            `json:"seed"`
}

type BumpRequest struct {
	UserID string   `json:"user_id" validate:"required"`
	Key    string   `json:"key" validate:"required"`
	Weight *float64 `json:"weight" validate:"omitempty,gte=0"`
}

type DecayRequest struct {
	UserID       string  `json:"user_id" validate:"required"`
	HalfLifeDays float64 `json:"half_life_days" validate:"gt=0"`
}

type EventResponse struct {
	ID string `json:"id"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) rank(c echo.Context) error {
	var req RankRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	e, err := s.sessions.Engine(ctx, req.UserID)
	if err != nil {
		return err
	}
	if req.Seed != nil && *req.Seed != e.Seed() {
		e.Reseed(*req.Seed)
	}

	opts := []engine.RankOption{
		engine.WithUser(req.UserID, req.Scene),
		engine.WithCriteria(req.Criteria),
		engine.WithLimit(req.Limit),
	}
	if req.Explore != nil {
		opts = append(opts, engine.WithExplore(*req.Explore))
	}
	items, err := e.Rank(ctx, req.Candidates, opts...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RankResponse{Items: items, Seed: e.Seed()})
}

func (s *Server) events(c echo.Context) error {
	if s.dispatcher == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "event ingestion disabled")
	}
	var ev feedback.Event
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if ev.UserID == "" {
		return ErrMissingUser
	}
	ev, err := s.dispatcher.Enqueue(ev)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, EventResponse{ID: ev.ID})
}

func (s *Server) bump(c echo.Context) error {
	f, ok := core.ParseFacet(c.Param("facet"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown facet "+c.Param("facet"))
	}
	var req BumpRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	e, err := s.sessions.Engine(ctx, req.UserID)
	if err != nil {
		return err
	}
	var weight []float64
	if req.Weight != nil {
		weight = append(weight, *req.Weight)
	}
	if err := e.Bump(ctx, f, req.Key, weight...); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) decay(c echo.Context) error {
	var req DecayRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	e, err := s.sessions.Engine(ctx, req.UserID)
	if err != nil {
		return err
	}
	if err := e.DecayAll(ctx, req.HalfLifeDays); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) preferences(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	e, err := s.sessions.Engine(ctx, c.QueryParam("user_id"))
	if err != nil {
		return err
	}
	raw, err := prefs.Encode(e.GetPreferences(ctx))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (s *Server) bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(req)
}
