package businessflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	resultsSheet = "Results"
	quotaSheet   = "Quota"
)

// XLSXRunReporter writes one workbook per run into a directory
type XLSXRunReporter struct {
	dir    string
	logger *zap.Logger
}

// NewXLSXRunReporter creates a reporter writing into dir
func NewXLSXRunReporter(dir string, logger *zap.Logger) *XLSXRunReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XLSXRunReporter{dir: dir, logger: logger.Named("run_report")}
}

// Write renders the summary and stores it as <initiative>_<timestamp>.xlsx
func (r *XLSXRunReporter) Write(summary *RunSummary) (string, error) {
	data, err := BuildRunWorkbook(summary)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", NewBusinessError("REPORT_DIR_ERROR", "Failed to create report directory", err)
	}

	name := fmt.Sprintf("%s_%s.xlsx", summary.InitiativeID, summary.StartedAt.UTC().Format("20060102T150405Z"))
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", NewBusinessError("REPORT_WRITE_ERROR", "Failed to write run report", err)
	}

	r.logger.Info("Run report written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// BuildRunWorkbook renders a run summary as an XLSX workbook with a results
// sheet (one row per publish attempt) and a quota sheet (one row per ad set).
func BuildRunWorkbook(summary *RunSummary) ([]byte, error) {
	xl := excelize.NewFile()
	defer xl.Close()

	xl.SetSheetName(xl.GetSheetName(0), resultsSheet)
	header := []any{"Campaign", "Ad Set", "Post ID", "Platform", "Status", "Platform Post ID", "URL", "Error", "Duration (s)"}
	if err := xl.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write results header", err)
	}

	row := 2
	for _, adSet := range summary.AdSets {
		if adSet.Error != "" && len(adSet.Results) == 0 {
			record := []any{adSet.CampaignName, adSet.AdSetName, "", "", "error", "", "", adSet.Error, ""}
			if err := setRow(xl, resultsSheet, row, record); err != nil {
				return nil, err
			}
			row++
			continue
		}
		for _, res := range adSet.Results {
			record := []any{
				adSet.CampaignName,
				adSet.AdSetName,
				res.PostID,
				res.Platform.String(),
				string(res.Status),
				derefString(res.PlatformPostID),
				derefString(res.PlatformURL),
				res.ErrorText(),
				strconv.FormatFloat(res.ExecutionTime.Seconds(), 'f', 2, 64),
			}
			if err := setRow(xl, resultsSheet, row, record); err != nil {
				return nil, err
			}
			row++
		}
	}

	if _, err := xl.NewSheet(quotaSheet); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to create quota sheet", err)
	}
	quotaHeader := []any{"Ad Set ID"}
	for _, stage := range []string{"Baseline", "Session", "Remaining"} {
		for _, kind := range QuotaKinds {
			quotaHeader = append(quotaHeader, stage+" "+strings.ReplaceAll(string(kind), "_", " "))
		}
	}
	if err := xl.SetSheetRow(quotaSheet, "A1", &quotaHeader); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write quota header", err)
	}

	ids := make([]string, 0, len(summary.QuotaSnapshots))
	for id := range summary.QuotaSnapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		snap := summary.QuotaSnapshots[id]
		record := []any{id}
		for _, counts := range []QuotaCounts{snap.Baseline, snap.Session, snap.Remaining} {
			for _, kind := range QuotaKinds {
				v, _ := counts.Get(kind)
				record = append(record, v)
			}
		}
		if err := setRow(xl, quotaSheet, i+2, record); err != nil {
			return nil, err
		}
	}

	xl.SetActiveSheet(0)
	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to generate excel file", err)
	}
	return buf.Bytes(), nil
}

func setRow(xl *excelize.File, sheet string, row int, record []any) error {
	cellRef, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return NewBusinessError("EXCEL_WRITE_ERROR", "Invalid cell reference", err)
	}
	if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
		return NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write row", err)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
