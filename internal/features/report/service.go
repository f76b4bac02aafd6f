package report

import (
	"context"
	"fmt"
	"strings"

	"acadhub/internal/common/models"
	"acadhub/internal/features/application"
	"acadhub/internal/features/group"
	"acadhub/internal/features/project"
	"acadhub/internal/features/user"
	"acadhub/pkg/utils"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AllocationRow is one line of the coordinator's allocation sheet.
type AllocationRow struct {
	GroupNumber  int
	GroupCode    string
	Members      string
	ProjectTitle string
	Faculty      string
	Type         models.ProjectType
	Year         int
	DecidedAt    string
}

type ReportService interface {
	// ExportAllocations renders every approved application of the cohort
	// to an xlsx sheet and returns the bytes plus a download filename.
	ExportAllocations(ctx context.Context, projectType models.ProjectType, year int) ([]byte, string, error)
}

type ReportServiceImpl struct {
	appRepo     application.ApplicationRepository
	groupRepo   group.GroupRepository
	projectRepo project.ProjectRepository
	userRepo    user.UserRepository
	logger      *zap.Logger
}

func NewReportService(
	appRepo application.ApplicationRepository,
	groupRepo group.GroupRepository,
	projectRepo project.ProjectRepository,
	userRepo user.UserRepository,
	logger *zap.Logger,
) ReportService {
	return &ReportServiceImpl{
		appRepo:     appRepo,
		groupRepo:   groupRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

var allocationColumns = []string{
	"Group No", "Group Code", "Members", "Project", "Faculty", "Type", "Year", "Decided At",
}

func (s *ReportServiceImpl) ExportAllocations(ctx context.Context, projectType models.ProjectType, year int) ([]byte, string, error) {
	apps, err := s.appRepo.FindAll(ctx, application.ListFilter{
		Type:   projectType,
		Status: application.StatusApproved,
		Year:   year,
	})
	if err != nil {
		return nil, "", err
	}

	rows := make([]AllocationRow, 0, len(apps))
	for i := range apps {
		row, err := s.buildRow(ctx, &apps[i])
		if err != nil {
			return nil, "", err
		}
		rows = append(rows, row)
	}

	data, err := renderXLSX(rows)
	if err != nil {
		return nil, "", err
	}

	name := fmt.Sprintf("allocations %s %d", projectType, year)
	filename := utils.Slugify(name) + ".xlsx"
	s.logger.Info("allocation report generated",
		zap.String("projectType", string(projectType)),
		zap.Int("year", year),
		zap.Int("rows", len(rows)))
	return data, filename, nil
}

func (s *ReportServiceImpl) buildRow(ctx context.Context, a *application.Application) (AllocationRow, error) {
	row := AllocationRow{Type: a.Type, Year: a.Year}
	if a.ReviewedAt != nil {
		row.DecidedAt = a.ReviewedAt.Format("2006-01-02 15:04:05")
	}

	var memberIDs []primitive.ObjectID
	if a.GroupID != nil {
		g, err := s.groupRepo.FindByID(ctx, *a.GroupID)
		if err != nil {
			return row, err
		}
		if g != nil {
			row.GroupNumber = g.GroupNumber
			row.GroupCode = g.Code
			memberIDs = g.Members
		}
	} else {
		memberIDs = []primitive.ObjectID{*a.StudentID}
	}

	if len(memberIDs) > 0 {
		members, err := s.userRepo.FindByIDs(ctx, memberIDs)
		if err != nil {
			return row, err
		}
		names := make([]string, 0, len(members))
		for i := range members {
			names = append(names, members[i].Name)
		}
		row.Members = strings.Join(names, ", ")
	}

	p, err := s.projectRepo.FindByID(ctx, a.ProjectID)
	if err != nil {
		return row, err
	}
	if p != nil {
		row.ProjectTitle = p.Title
		faculty, err := s.userRepo.FindByID(ctx, p.FacultyID)
		if err != nil {
			return row, err
		}
		if faculty != nil {
			row.Faculty = faculty.Name
		}
	}
	return row, nil
}

func renderXLSX(rows []AllocationRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Allocations"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	for i, col := range allocationColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		values := []any{
			row.GroupNumber, row.GroupCode, row.Members,
			row.ProjectTitle, row.Faculty, string(row.Type), row.Year, row.DecidedAt,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	for i := range allocationColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
