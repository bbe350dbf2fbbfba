package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
)

// ReportService builds per-question-set performance reports.
type ReportService interface {
	Summary(ctx context.Context, questionSetID uint) (dto.ReportResponse, error)
	ExportXLSX(ctx context.Context, questionSetID uint) ([]byte, string, error)
}

type reportService struct {
	sets        repository.QuestionSetRepository
	evaluations repository.EvaluationRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewReportService constructs the report service. The cache client may be
// nil, in which case every summary is computed from the database.
func NewReportService(sets repository.QuestionSetRepository, evaluations repository.EvaluationRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ReportService {
	return &reportService{
		sets:        sets,
		evaluations: evaluations,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "report_service").Logger(),
	}
}

// Summary aggregates the latest completed evaluation per student and
// question into one table for the set. Results are cached briefly since
// reports are read far more often than grades change.
func (s *reportService) Summary(ctx context.Context, questionSetID uint) (dto.ReportResponse, error) {
	cacheKey := fmt.Sprintf("report:set:%d", questionSetID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ReportResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("question_set_id", questionSetID).Msg("report cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read report cache")
		}
	}

	response, err := s.build(ctx, questionSetID)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(response); marshalErr == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report cache")
			}
		}
	}

	return response, nil
}

func (s *reportService) build(ctx context.Context, questionSetID uint) (dto.ReportResponse, error) {
	set, err := s.sets.GetByID(ctx, questionSetID)
	if err != nil {
		return dto.ReportResponse{}, ErrQuestionSetNotFound
	}

	evaluations, err := s.evaluations.List(ctx, repository.EvaluationFilter{QuestionSetID: &questionSetID})
	if err != nil {
		return dto.ReportResponse{}, fmt.Errorf("list evaluations: %w", err)
	}

	maxMarks := 0.0
	for _, entry := range set.Entries {
		maxMarks += entry.Question.TotalMarks()
	}

	// First pass marks which student/question cells have a completed run at
	// all. Scores come from ObtainedMarks afterwards, which resolves to the
	// latest completed run, so re-grades supersede earlier results no matter
	// how the evaluation list is ordered.
	cells := make(map[uint]map[uint]bool)
	for _, evaluation := range evaluations {
		byQuestion, ok := cells[evaluation.StudentID]
		if !ok {
			byQuestion = make(map[uint]bool)
			cells[evaluation.StudentID] = byQuestion
		}
		if evaluation.Status == models.EvaluationStatusCompleted && evaluation.TotalScore != nil {
			byQuestion[evaluation.QuestionID] = true
		} else if _, seen := byQuestion[evaluation.QuestionID]; !seen {
			byQuestion[evaluation.QuestionID] = false
		}
	}

	ordered := make([]dto.ReportRow, 0, len(cells))
	for studentID, byQuestion := range cells {
		row := dto.ReportRow{StudentID: studentID, Scores: make(map[uint]*float64)}
		for questionID, completed := range byQuestion {
			if !completed {
				row.Pending++
				continue
			}
			score, err := s.evaluations.ObtainedMarks(ctx, studentID, questionID, questionSetID)
			if err != nil {
				return dto.ReportResponse{}, fmt.Errorf("sum obtained marks: %w", err)
			}
			row.Scores[questionID] = &score
			row.Total += score
			row.Graded++
		}
		ordered = append(ordered, row)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Total != ordered[j].Total {
			return ordered[i].Total > ordered[j].Total
		}
		return ordered[i].StudentID < ordered[j].StudentID
	})

	return dto.ReportResponse{
		QuestionSetID: questionSetID,
		Name:          set.Name,
		MaxMarks:      maxMarks,
		Rows:          ordered,
	}, nil
}

// ExportXLSX renders the summary as a spreadsheet, one row per student and
// one column per question in set order.
func (s *reportService) ExportXLSX(ctx context.Context, questionSetID uint) ([]byte, string, error) {
	set, err := s.sets.GetByID(ctx, questionSetID)
	if err != nil {
		return nil, "", ErrQuestionSetNotFound
	}

	summary, err := s.Summary(ctx, questionSetID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []interface{}{"Student ID"}
	for _, entry := range set.Entries {
		headers = append(headers, fmt.Sprintf("Q%d (%s)", entry.Position, formatXLSXMarks(entry.Question.TotalMarks())))
	}
	headers = append(headers, "Total", "Graded", "Pending")
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, "", fmt.Errorf("write header row: %w", err)
	}

	for i, row := range summary.Rows {
		cells := []interface{}{row.StudentID}
		for _, entry := range set.Entries {
			if score := row.Scores[entry.QuestionID]; score != nil {
				cells = append(cells, *score)
			} else {
				cells = append(cells, "")
			}
		}
		cells = append(cells, row.Total, row.Graded, row.Pending)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, "", fmt.Errorf("write row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("serialize workbook: %w", err)
	}

	filename := fmt.Sprintf("report-set-%d.xlsx", questionSetID)
	s.logger.Info().Uint("question_set_id", questionSetID).Int("rows", len(summary.Rows)).Msg("report exported")
	return buf.Bytes(), filename, nil
}

func formatXLSXMarks(marks float64) string {
	return fmt.Sprintf("%g marks", marks)
}
