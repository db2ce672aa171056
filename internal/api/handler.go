// Package api exposes the extraction and analysis pipeline over HTTP.
package api

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ledgerlens/statement-auditor/internal/analyzer"
	"github.com/ledgerlens/statement-auditor/internal/extractor"
	"github.com/ledgerlens/statement-auditor/internal/models"
	"github.com/ledgerlens/statement-auditor/internal/parser"
)

const Version = "1.0.0"

// Server wires the HTTP routes to a parser registry and analyzer.
type Server struct {
	registry *parser.Registry
	analyzer *analyzer.Analyzer
}

func NewServer(registry *parser.Registry) *Server {
	return &Server{
		registry: registry,
		analyzer: analyzer.New(registry),
	}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "statement-auditor",
		BodyLimit: 50 * 1024 * 1024,
	})
	app.Use(recover.New())

	app.Get("/api/health", s.HandleHealth)
	app.Post("/api/extract", s.HandleExtract)
	app.Get("/api/analyze", s.HandleAnalyze)

	return app
}

func (s *Server) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
	})
}

// extractResponse is the /api/extract payload: the detected format, the
// statement period, the transactions, and their totals.
type extractResponse struct {
	FileName     string               `json:"fileName"`
	ParserName   string               `json:"parserName"`
	StartDate    string               `json:"startDate"`
	EndDate      string               `json:"endDate"`
	Transactions []models.Transaction `json:"transactions"`
	TotalDebits  decimal.Decimal      `json:"totalDebits"`
	TotalCredits decimal.Decimal      `json:"totalCredits"`
}

// HandleExtract accepts one uploaded statement file under the "statement"
// form field and returns its dates and transactions.
func (s *Server) HandleExtract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("statement")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing statement file upload",
		})
	}

	tmpDir, err := os.MkdirTemp("", "statement-upload-*")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "could not stage upload",
		})
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, filepath.Base(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, tmpPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "could not save upload",
		})
	}

	doc, err := extractor.Load(tmpPath)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	dates, parserName, err := s.registry.ParseStatement(doc)
	if err != nil {
		status := fiber.StatusUnprocessableEntity
		if !errors.Is(err, parser.ErrNoParser) {
			log.Warn().Str("file", fileHeader.Filename).Err(err).Msg("extraction failed")
		}
		return c.Status(status).JSON(fiber.Map{
			"error":      err.Error(),
			"parserName": parserName,
		})
	}

	resp := extractResponse{
		FileName:     fileHeader.Filename,
		ParserName:   parserName,
		StartDate:    dates.Start,
		EndDate:      dates.End,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}

	// Transaction extraction is a per-format capability; formats without
	// it still report their dates.
	if transactions, _, err := s.registry.ExtractTransactions(doc); err == nil {
		resp.Transactions = transactions
		for _, tx := range transactions {
			if tx.IsOpeningBalance() {
				continue
			}
			if tx.Type == models.TypeDebit {
				resp.TotalDebits = resp.TotalDebits.Add(tx.Amount)
			} else {
				resp.TotalCredits = resp.TotalCredits.Add(tx.Amount)
			}
		}
	}
	if resp.Transactions == nil {
		resp.Transactions = []models.Transaction{}
	}

	return c.JSON(resp)
}

// HandleAnalyze runs the directory analysis for ?dir= and returns the full
// result. The directory must be reachable from the server process.
func (s *Server) HandleAnalyze(c *fiber.Ctx) error {
	dir := c.Query("dir")
	if dir == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing dir query parameter",
		})
	}

	analysis, err := s.analyzer.AnalyzeDirectory(dir)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(analysis)
}
