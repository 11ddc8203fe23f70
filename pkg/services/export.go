package services

import (
	"fmt"
	"time"

	"erp-admin-console/pkg/models"

	"github.com/xuri/excelize/v2"
)

// エクスポートするシート名
const (
	SheetSummary  = "Summary"
	SheetTrend    = "Trend"
	SheetProducts = "Products"
	SheetSales    = "Sales"
)

// ExportWorkbook builds a workbook with the product summary, the trend by
// granularity and the raw product and sales snapshots. The caller closes it.
func ExportWorkbook(products []models.Product, sales []models.SalesRecord, granularity Granularity, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("シート名の設定に失敗: %w", err)
	}

	summary := [][]interface{}{{"Product", "Total Revenue", "Quantity Sold"}}
	for _, row := range AggregateByProduct(sales) {
		summary = append(summary, []interface{}{row.ProductName, row.TotalRevenue.InexactFloat64(), row.QuantitySold})
	}

	trend := [][]interface{}{{"Period", "Start", "End", "Total Revenue", "Quantity Sold"}}
	for _, row := range AggregateByPeriod(sales, granularity) {
		trend = append(trend, []interface{}{row.Period, row.StartDate, row.EndDate, row.TotalRevenue.InexactFloat64(), row.QuantitySold})
	}

	productRows := [][]interface{}{{"ID", "Name", "Description", "Price", "Quantity", "Created", "Updated"}}
	for _, p := range products {
		productRows = append(productRows, []interface{}{
			p.ID, p.Name, p.DescriptionText(), p.Price, p.Quantity,
			DisplayDate(p.CreatedAt, loc), DisplayDate(p.UpdatedAt, loc),
		})
	}

	salesRows := [][]interface{}{{"ID", "Product", "Date", "Quantity Sold", "Total Revenue"}}
	for _, r := range sales {
		salesRows = append(salesRows, []interface{}{r.ID, r.ProductName, DisplayDate(r.SalesDate, loc), r.QuantitySold, r.TotalRevenue})
	}

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetSummary, summary},
		{SheetTrend, trend},
		{SheetProducts, productRows},
		{SheetSales, salesRows},
	}
	for _, sheet := range sheets {
		if sheet.name != SheetSummary {
			if _, err := f.NewSheet(sheet.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("シート %s の作成に失敗: %w", sheet.name, err)
			}
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("シート %s の書き込みに失敗: %w", sheet, err)
		}
	}
	return nil
}
