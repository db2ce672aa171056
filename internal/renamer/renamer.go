// Package renamer copies analyzed statement files under canonical names
// derived from the detected format and coverage period, e.g.
// "AIB_Debit_Account_from_Jan2026_to_Feb2026.pdf".
package renamer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/statement-auditor/internal/models"
)

// Stats counts the outcomes of one rename run.
type Stats struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// FormatDateForFilename converts "D MMM YYYY" to "MMMYYYY", e.g.
// "19 Jan 2026" to "Jan2026". Unparseable input falls back to a manual
// split, then to "Unknown".
func FormatDateForFilename(dateStr string) string {
	if t, err := models.ParseDate(dateStr); err == nil {
		return t.Format("Jan") + strconv.Itoa(t.Year())
	}
	parts := strings.Fields(dateStr)
	if len(parts) >= 3 {
		month := parts[1]
		if len(month) > 3 {
			month = month[:3]
		}
		if year, err := strconv.Atoi(parts[2]); err == nil {
			return month + strconv.Itoa(year)
		}
	}
	return "Unknown"
}

// SanitizeParserName makes a format name filesystem-safe: spaces and
// dashes become underscores.
func SanitizeParserName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, "-", "_")
}

// RenameStatements copies every successfully analyzed statement into
// outputDir under its canonical name. Source files are never touched.
// Files with errors, missing dates, or no detected format are skipped.
// Name collisions get a numeric suffix. With dryRun set, nothing is
// written; the run only logs what would happen.
func RenameStatements(analysis *models.StatementsAnalysis, outputDir string, dryRun bool) (Stats, error) {
	var stats Stats

	if !dryRun {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return stats, fmt.Errorf("create output directory %q: %w", outputDir, err)
		}
	}

	for _, stmt := range analysis.Statements {
		if stmt.Error != "" || stmt.StartDate == "" || stmt.EndDate == "" {
			reason := stmt.Error
			if reason == "" {
				reason = "missing dates"
			}
			log.Info().Str("file", stmt.FileName).Str("reason", reason).Msg("skipping")
			stats.Skipped++
			continue
		}
		if stmt.ParserName == "" {
			log.Info().Str("file", stmt.FileName).Msg("skipping: no detected format")
			stats.Skipped++
			continue
		}

		ext := filepath.Ext(stmt.FilePath)
		newName := fmt.Sprintf("%s_from_%s_to_%s%s",
			SanitizeParserName(stmt.ParserName),
			FormatDateForFilename(stmt.StartDate),
			FormatDateForFilename(stmt.EndDate),
			ext)
		destPath := filepath.Join(outputDir, newName)

		if !dryRun {
			base := strings.TrimSuffix(newName, ext)
			for counter := 1; ; counter++ {
				if _, err := os.Stat(destPath); os.IsNotExist(err) {
					break
				}
				newName = base + "_" + strconv.Itoa(counter) + ext
				destPath = filepath.Join(outputDir, newName)
			}
		}

		if dryRun {
			log.Info().Str("from", stmt.FileName).Str("to", newName).Msg("would copy")
			continue
		}

		if err := copyFile(stmt.FilePath, destPath); err != nil {
			log.Error().Str("file", stmt.FileName).Err(err).Msg("copy failed")
			stats.Errors++
			continue
		}
		log.Info().Str("from", stmt.FileName).Str("to", newName).Msg("copied")
		stats.Copied++
	}

	return stats, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
