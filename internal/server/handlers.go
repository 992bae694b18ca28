package server

import (
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/framerelay/internal/relay"
	"github.com/rs/zerolog/log"
)

var acceptJSON = regexp.MustCompile(`^application/json`)

func (s *Server) health(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unreachable")
	}
	return c.String(http.StatusOK, "ok")
}

// newSession hands out a session token, as JSON when the client asks for it.
func (s *Server) newSession(c echo.Context) error {
	id := relay.NewSession()
	if acceptJSON.MatchString(c.Request().Header.Get(echo.HeaderAccept)) {
		return c.JSON(http.StatusOK, map[string]string{"session": id})
	}
	return c.String(http.StatusOK, id)
}

// uploadRaw ingests the request body as one frame.
func (s *Server) uploadRaw(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.relay.Ingest(ctx, c.Param("session"), c.Request().Body); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// uploadForm ingests the first file part of a multipart form as one frame.
// The part is streamed; other parts are skipped.
func (s *Server) uploadForm(c echo.Context) error {
	session := c.Param("session")
	if session == "" {
		return relay.ErrInvalidSession
	}
	ctx := c.Request().Context()
	mr, err := c.Request().MultipartReader()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form: "+err.Error())
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return echo.NewHTTPError(http.StatusBadRequest, "no file in form")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed multipart form: "+err.Error())
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		_, err = s.relay.Ingest(ctx, session, part)
		_ = part.Close()
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	}
}

// nextImage delivers the oldest live frame, or the placeholder image.
func (s *Server) nextImage(c echo.Context) error {
	ctx := c.Request().Context()
	data, err := s.relay.Retrieve(ctx, c.Param("session"))
	if errors.Is(err, relay.ErrNoData) {
		return s.noData(c)
	}
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, s.opts.MimeType, data)
}

func (s *Server) noData(c echo.Context) error {
	ctx := c.Request().Context()
	img, err := s.placeholder.Placeholder(ctx, s.opts.Ratio, s.opts.Height)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("placeholder unavailable")
		return echo.NewHTTPError(http.StatusBadGateway, "no data")
	}
	defer img.Body.Close()
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Stream(http.StatusOK, img.ContentType, img.Body)
}

func (s *Server) stats(c echo.Context) error {
	st, err := s.relay.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}
