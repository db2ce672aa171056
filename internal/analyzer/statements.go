package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
	"github.com/ledgerlens/statement-auditor/internal/models"
	"github.com/ledgerlens/statement-auditor/internal/parser"
)

// statementExtensions are the file types picked up from a directory scan.
var statementExtensions = map[string]bool{
	".pdf":  true,
	".xlsx": true,
}

// Analyzer runs directory-level consistency analysis over statement files.
type Analyzer struct {
	registry *parser.Registry
}

func New(registry *parser.Registry) *Analyzer {
	return &Analyzer{registry: registry}
}

// ComputeFileSignature returns the hex SHA-256 of a file's content, used to
// detect byte-identical statements regardless of file name.
func ComputeFileSignature(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// AnalyzeDirectory scans a directory for statement files and produces the
// full analysis: per-file extraction results, duplicate groups, coverage
// breaks, and the summary.
//
// Files are processed in modification-time order. A file whose extraction
// fails still appears in Statements, carrying an error string; it is
// excluded from duplicate grouping, continuity, and the file total.
func (a *Analyzer) AnalyzeDirectory(dir string) (*models.StatementsAnalysis, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("statements directory %q: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}

	type candidate struct {
		path    string
		modTime int64
		info    os.FileInfo
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !statementExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Warn().Str("file", e.Name()).Err(err).Msg("skipping unreadable entry")
			continue
		}
		files = append(files, candidate{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime().UnixNano(),
			info:    info,
		})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].modTime < files[j].modTime })

	var statements []models.StatementInfo
	signatureMap := make(map[string][]string)
	var signatureOrder []string

	for _, f := range files {
		statements = append(statements, a.analyzeFile(f.path, f.info, signatureMap, &signatureOrder))
	}

	analysis := &models.StatementsAnalysis{
		Statements: statements,
		Summary: models.AnalysisSummary{
			ContinuousPeriodStart: "N/A",
			ContinuousPeriodEnd:   "N/A",
		},
	}

	var valid []models.StatementInfo
	for _, s := range statements {
		if s.Error == "" {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return analysis, nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].StartDateParsed.Before(valid[j].StartDateParsed)
	})

	for _, sig := range signatureOrder {
		if names := signatureMap[sig]; len(names) > 1 {
			analysis.Summary.Duplicates = append(analysis.Summary.Duplicates,
				models.DuplicateGroup{Signature: sig, Files: names})
		}
	}

	// Adjacent statements may overlap or abut; only a gap of more than one
	// day between one statement's end and the next one's start is a break.
	for i := 0; i < len(valid)-1; i++ {
		cur, next := valid[i], valid[i+1]
		gapDays := int(next.StartDateParsed.Sub(cur.EndDateParsed).Hours() / 24)
		if gapDays > 1 {
			analysis.Summary.Breaks = append(analysis.Summary.Breaks, models.StatementBreak{
				PreviousFile:    cur.FileName,
				PreviousEndDate: cur.EndDate,
				NextFile:        next.FileName,
				NextStartDate:   next.StartDate,
				GapDays:         gapDays,
			})
		}
	}

	first, last := valid[0], valid[len(valid)-1]
	analysis.Summary.TotalFiles = len(valid)
	analysis.Summary.ContinuousPeriodStart = first.StartDate
	analysis.Summary.ContinuousPeriodEnd = last.EndDate
	analysis.Summary.TotalDaysCovered = int(last.EndDateParsed.Sub(first.StartDateParsed).Hours() / 24)

	return analysis, nil
}

// analyzeFile extracts one file's statement info. Failures never abort the
// batch; they become the info's Error string.
func (a *Analyzer) analyzeFile(path string, fileInfo os.FileInfo, signatureMap map[string][]string, signatureOrder *[]string) models.StatementInfo {
	name := filepath.Base(path)
	info := models.StatementInfo{
		FileName:   name,
		FilePath:   path,
		ModifiedAt: fileInfo.ModTime(),
	}

	signature, err := ComputeFileSignature(path)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.FileSignature = signature

	doc, err := extractor.Load(path)
	if err != nil {
		info.Error = err.Error()
		return info
	}

	dates, parserName, err := a.registry.ParseStatement(doc)
	info.ParserName = parserName
	if err != nil {
		info.Error = err.Error()
		return info
	}

	startParsed, err := models.ParseDate(dates.Start)
	if err != nil {
		info.Error = fmt.Sprintf("unparseable start date %q", dates.Start)
		return info
	}
	endParsed, err := models.ParseDate(dates.End)
	if err != nil {
		info.Error = fmt.Sprintf("unparseable end date %q", dates.End)
		return info
	}

	info.StartDate = dates.Start
	info.EndDate = dates.End
	info.StartDateParsed = startParsed
	info.EndDateParsed = endParsed

	if _, seen := signatureMap[signature]; !seen {
		*signatureOrder = append(*signatureOrder, signature)
	}
	signatureMap[signature] = append(signatureMap[signature], name)

	log.Debug().Str("file", name).Str("parser", parserName).
		Str("start", dates.Start).Str("end", dates.End).Msg("statement analyzed")
	return info
}

// ExtractDirectoryTransactions extracts transactions from every supported
// file in a directory, keyed by file name. Files without a capable parser
// are skipped with a log entry.
func (a *Analyzer) ExtractDirectoryTransactions(dir string) (map[string][]models.Transaction, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("statements directory %q: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}

	out := make(map[string][]models.Transaction)
	for _, e := range entries {
		if e.IsDir() || !statementExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		path := filepath.Join(dir, e.Name())

		doc, err := extractor.Load(path)
		if err != nil {
			log.Warn().Str("file", e.Name()).Err(err).Msg("skipping unreadable statement")
			continue
		}
		transactions, parserName, err := a.registry.ExtractTransactions(doc)
		if err != nil {
			log.Info().Str("file", e.Name()).Err(err).Msg("no transaction extraction")
			continue
		}
		log.Info().Str("file", e.Name()).Str("parser", parserName).
			Int("count", len(transactions)).Msg("transactions extracted")
		out[e.Name()] = transactions
	}
	return out, nil
}
