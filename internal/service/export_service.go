package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/repository"
	pkgerrors "placement-portal/backend/pkg/errors"
	"placement-portal/backend/pkg/validate"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRecords    = errors.New("该日期暂无考勤记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportAttendance 导出某日考勤为 Excel
	ExportAttendance(ctx context.Context, date string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance 导出某日考勤为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Forenoon" / "Afternoon"：每个时段一张，行为学生，列为 学号 / 姓名 / 院系 / 状态 / 已通知
//   - Sheet "Summary"：两个时段的院系出勤汇总
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

var exportSessions = []struct {
	session string
	sheet   string
}{
	{model.SessionForenoon, "Forenoon"},
	{model.SessionAfternoon, "Afternoon"},
}

func (s *exportService) ExportAttendance(ctx context.Context, date string) (*bytes.Buffer, string, error) {
	if !validate.IsDate(date) {
		return nil, "", pkgerrors.NewValidationError("date", "日期格式必须为 YYYY-MM-DD，实际为 %q", date)
	}

	// 1. 查询当日考勤（已预加载学生）
	records, err := s.repo.Attendance.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.String("date", date), zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoRecords
	}

	bySession := make(map[string][]model.AttendanceRecord, len(exportSessions))
	for _, r := range records {
		bySession[r.Session] = append(bySession[r.Session], r)
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for _, es := range exportSessions {
		if _, err := f.NewSheet(es.sheet); err != nil {
			s.logger.Error("创建 Sheet 失败", zap.String("sheet", es.sheet), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
		s.writeSessionSheet(f, es.sheet, date, bySession[es.session], headerStyle)
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		s.logger.Error("创建 Sheet 失败", zap.String("sheet", "Summary"), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	s.writeSummarySheet(f, "Summary", bySession, headerStyle)

	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(exportSessions[0].sheet); err == nil {
		f.SetActiveSheet(idx)
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%s.xlsx", date)
	return buf, filename, nil
}

func (s *exportService) writeSessionSheet(f *excelize.File, sheet, date string, rows []model.AttendanceRecord, headerStyle int) {
	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "C", 22)
	f.SetColWidth(sheet, "D", "E", 12)

	// 标题行
	f.SetCellValue(sheet, "A1", fmt.Sprintf("Attendance %s (%s)", date, sheet))
	f.MergeCell(sheet, "A1", "E1")
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"Reg No", "Name", "Department", "Status", "Notified"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", "E2", headerStyle)

	// 数据行
	row := 3
	for _, r := range rows {
		regNo, name, dept := r.StudentID, "", UnknownDepartment
		if r.Student != nil {
			regNo, name = r.Student.RegNo, r.Student.Name
			if r.Student.Department != "" {
				dept = r.Student.Department
			}
		}
		notified := "-"
		if r.Notified {
			notified = "Yes"
		}
		f.SetCellValue(sheet, cell("A", row), regNo)
		f.SetCellValue(sheet, cell("B", row), name)
		f.SetCellValue(sheet, cell("C", row), dept)
		f.SetCellValue(sheet, cell("D", row), r.Status)
		f.SetCellValue(sheet, cell("E", row), notified)
		row++
	}
}

func (s *exportService) writeSummarySheet(f *excelize.File, sheet string, bySession map[string][]model.AttendanceRecord, headerStyle int) {
	f.SetColWidth(sheet, "A", "B", 14)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "G", 12)

	headers := []string{"Session", "Department", "Total", "Present", "Absent", "On Duty", "Percentage"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", "G1", headerStyle)

	row := 2
	for _, es := range exportSessions {
		input := make([]StudentAttendanceStatus, 0, len(bySession[es.session]))
		for _, r := range bySession[es.session] {
			st := StudentAttendanceStatus{StudentID: r.StudentID, Status: r.Status}
			if r.Student != nil {
				st.Department = r.Student.Department
			}
			input = append(input, st)
		}
		summary := AggregateAttendance(input)

		lines := append(summary.PerDepartment, summary.Totals)
		for _, d := range lines {
			f.SetCellValue(sheet, cell("A", row), es.sheet)
			f.SetCellValue(sheet, cell("B", row), d.Department)
			f.SetCellValue(sheet, cell("C", row), d.Total)
			f.SetCellValue(sheet, cell("D", row), d.Present)
			f.SetCellValue(sheet, cell("E", row), d.Absent)
			f.SetCellValue(sheet, cell("F", row), d.OnDuty)
			f.SetCellValue(sheet, cell("G", row), d.Percentage+"%")
			row++
		}
	}
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
