package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jacentio/lepidoptera/internal/outcome"
)

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, outcome.Message{Message: outcome.MsgRunning})
}

func (s *Server) getButterfly(c echo.Context) error {
	b, err := s.services.Butterflies.Get(c.Request().Context(), c.Param("butterflyId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) createButterfly(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	b, err := s.services.Butterflies.Create(c.Request().Context(), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) getUser(c echo.Context) error {
	u, err := s.services.Users.Get(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) createUser(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	u, err := s.services.Users.Create(c.Request().Context(), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// createScore records a score; the user id comes from the path, never the body.
func (s *Server) createScore(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	score, err := s.services.Scores.Create(c.Request().Context(), c.Param("userId"), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, score)
}

func (s *Server) listScores(c echo.Context) error {
	scores, err := s.services.Scores.List(c.Request().Context(), c.Param("userId"), c.QueryParam("sortOrder"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scores)
}
