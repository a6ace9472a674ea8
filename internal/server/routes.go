package server

import (
	"io"

	fiber "github.com/gofiber/fiber/v3"
	"github.com/hyp3rd/ewrap"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
	"github.com/KaramelBytes/docloom-insights/internal/insights"
)

// Header names set on every response.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderDatasetDigest = "X-Dataset-Digest"
)

// uploadField is the multipart form field carrying the dataset.
const uploadField = "file"

type generateResponse struct {
	Insights *analysis.Insights `json:"insights"`
}

func (s *Server) mountRoutes() {
	s.app.Get("/health", func(c fiber.Ctx) error { return c.SendString("ok") })
	s.app.Post("/generate-insights/", s.generateInsights)
}

func (s *Server) generateInsights(c fiber.Ctx) error {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return ewrap.Wrap(err, "open upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return ewrap.Wrap(err, "read upload")
	}

	up := insights.Upload{Name: fh.Filename, Data: data}
	c.Set(HeaderDatasetDigest, up.Digest())

	in, err := s.svc.Generate(c.Context(), up)
	if err != nil {
		return err
	}
	return c.JSON(generateResponse{Insights: in})
}
