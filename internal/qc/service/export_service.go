package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
)

// ExportService 检验报告导出服务
type ExportService struct {
	projectRepo    *repository.ProjectRepository
	inspectionRepo *repository.InspectionRepository
	phaseRepo      *repository.PhaseRepository
}

func NewExportService(projectRepo *repository.ProjectRepository, inspectionRepo *repository.InspectionRepository, phaseRepo *repository.PhaseRepository) *ExportService {
	return &ExportService{
		projectRepo:    projectRepo,
		inspectionRepo: inspectionRepo,
		phaseRepo:      phaseRepo,
	}
}

var inspectionExportHeaders = []string{
	"检验单号", "阶段", "状态", "得分", "检验员", "提交时间", "评审时间", "备注",
}

var itemExportHeaders = []string{
	"检验单号", "检查项", "必检", "权重", "结果", "实测值", "备注",
}

// ExportProjectReport 导出项目检验报告为xlsx，两个sheet：检验单汇总和检验项明细
func (s *ExportService) ExportProjectReport(ctx context.Context, projectID string) (*excelize.File, string, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("get project: %w", err)
	}
	inspections, err := s.inspectionRepo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("list inspections: %w", err)
	}
	phases, err := s.phaseRepo.FindAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list phases: %w", err)
	}
	phaseNames := make(map[string]string, len(phases))
	for _, p := range phases {
		phaseNames[p.ID] = p.Name
	}

	f := excelize.NewFile()
	sheet := "检验单"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range inspectionExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, insp := range inspections {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), insp.Code)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), phaseNames[insp.PhaseID])
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), insp.Status)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), insp.Score)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), insp.InspectorID)
		if insp.SubmittedAt != nil {
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), insp.SubmittedAt.Format("2006-01-02 15:04"))
		}
		if insp.ReviewedAt != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), insp.ReviewedAt.Format("2006-01-02 15:04"))
		}
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), insp.Notes)
	}

	colWidths := []float64{16, 14, 12, 8, 16, 18, 18, 30}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	// 检验项明细sheet
	itemSheet := "检验项"
	f.NewSheet(itemSheet)
	for i, h := range itemExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(itemSheet, cell, h)
		f.SetCellStyle(itemSheet, cell, cell, boldStyle)
	}

	row := 2
	for _, insp := range inspections {
		for _, item := range insp.Items {
			writeItemRow(f, itemSheet, row, insp.Code, item)
			row++
		}
	}

	itemWidths := []float64{16, 30, 8, 8, 10, 12, 30}
	for i, w := range itemWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(itemSheet, col, col, w)
	}

	filename := fmt.Sprintf("检验报告_%s_%s.xlsx", project.Code, time.Now().Format("20060102"))
	return f, filename, nil
}

// ExportInspection 导出单张检验单明细
func (s *ExportService) ExportInspection(ctx context.Context, inspectionID string) (*excelize.File, string, error) {
	inspection, err := s.inspectionRepo.FindByID(ctx, inspectionID)
	if err != nil {
		return nil, "", fmt.Errorf("get inspection: %w", err)
	}

	f := excelize.NewFile()
	sheet := "检验项"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})

	for i, h := range itemExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	for rowIdx, item := range inspection.Items {
		writeItemRow(f, sheet, rowIdx+2, inspection.Code, item)
	}

	// 底部汇总行
	summaryRow := len(inspection.Items) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("共%d项", len(inspection.Items)))
	f.SetCellValue(sheet, fmt.Sprintf("E%d", summaryRow), fmt.Sprintf("得分: %.1f", inspection.Score))
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("G%d", summaryRow), summaryStyle)

	filename := fmt.Sprintf("检验单_%s.xlsx", inspection.Code)
	return f, filename, nil
}

func writeItemRow(f *excelize.File, sheet string, row int, code string, item entity.InspectionItem) {
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), code)
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.Title)
	mandatory := "否"
	if item.IsMandatory {
		mandatory = "是"
	}
	f.SetCellValue(sheet, fmt.Sprintf("C%d", row), mandatory)
	f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.Weight)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.Status)
	if item.MeasuredValue != nil {
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), *item.MeasuredValue)
	}
	f.SetCellValue(sheet, fmt.Sprintf("G%d", row), item.Notes)
}
