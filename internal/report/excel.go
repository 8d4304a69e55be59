package report

import (
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

const (
	AllocationSheet = "Allocation"
	SummarySheet    = "Summary"
)

var ExcelHeaders = []any{
	"Product ID", "Product Name", "Weight", "Category", "Assigned Shelf",
	"Shelf Name", "Shelf Capacity", "Shelf Type", "Shelf Secured", "Shelf Visibility",
}

// WriteExcel 把分配结果写成 xlsx，第一个表是分配明细，第二个表是惩罚汇总
func WriteExcel(w io.Writer, rows []Row, summary Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AllocationSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(AllocationSheet, "A1", &ExcelHeaders); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.ProductID, row.ProductName, row.Weight, row.Category, row.ShelfID,
			row.ShelfName, row.ShelfCapacity, row.ShelfType, row.ShelfSecured, row.ShelfVisibility,
		}
		if err := f.SetSheetRow(AllocationSheet, cell, &values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}

	summaryRows := [][]any{
		{"Rule", "Penalty"},
		{"total", summary.Penalty},
		{"generations", summary.Generations},
		{"violations", summary.Breakdown.Violations},
	}
	for _, rule := range summary.Breakdown.Rules() {
		summaryRows = append(summaryRows, []any{rule.Rule, rule.Penalty})
	}

	for i, values := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// SaveExcel 把报告保存到文件
func SaveExcel(filename string, rows []Row, summary Summary) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteExcel(f, rows, summary); err != nil {
		return err
	}
	return f.Close()
}
