package logconv

import (
	"fmt"
	"io"
	"time"

	api "github.com/macrat/sitewatch/lib-sitewatch"
	"github.com/xuri/excelize/v2"
)

// XlsxRowLimit is the maximum number of incidents in a xlsx file.
const XlsxRowLimit = 100000

const sheetName = "incidents"

func excelPos(x, y int) string {
	pos, err := excelize.CoordinatesToCellName(x+1, y+1)
	if err != nil {
		panic(err)
	}
	return pos
}

// ToXlsx writes incidents as an Excel workbook.
// Times are shown in the location of createdAt.
func ToXlsx(w io.Writer, incidents []api.Incident, createdAt time.Time) error {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	if err := xlsx.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	xlsx.SetAppProps(&excelize.AppProperties{
		Application: "sitewatch",
	})
	xlsx.SetDocProps(&excelize.DocProperties{
		Created:        createdAt.Format(time.RFC3339),
		Modified:       createdAt.Format(time.RFC3339),
		Creator:        "sitewatch",
		LastModifiedBy: "sitewatch",
	})

	zone, _ := createdAt.Zone()
	headers := []string{
		"id",
		"url",
		"error",
		fmt.Sprintf("starts at (%s)", zone),
		fmt.Sprintf("ends at (%s)", zone),
		"duration (sec)",
	}
	for i, h := range headers {
		xlsx.SetCellStr(sheetName, excelPos(i, 0), h)
	}

	datefmt := "yyyy-mm-dd hh:mm:ss"
	dateStyle, err := xlsx.NewStyle(&excelize.Style{CustomNumFmt: &datefmt})
	if err != nil {
		return err
	}
	openStyle, err := xlsx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "FF2D00", Bold: true},
	})
	if err != nil {
		return err
	}

	for i, x := range incidents {
		if i >= XlsxRowLimit {
			break
		}
		row := i + 1

		xlsx.SetCellStr(sheetName, excelPos(0, row), x.ID)
		xlsx.SetCellStr(sheetName, excelPos(1, row), x.Target)
		xlsx.SetCellStr(sheetName, excelPos(2, row), string(x.Error))

		starts := excelPos(3, row)
		xlsx.SetCellValue(sheetName, starts, x.StartsAt.In(createdAt.Location()))
		xlsx.SetCellStyle(sheetName, starts, starts, dateStyle)

		ends := excelPos(4, row)
		if x.IsOpen() {
			xlsx.SetCellStr(sheetName, ends, "ongoing")
			xlsx.SetCellStyle(sheetName, ends, ends, openStyle)
		} else {
			xlsx.SetCellValue(sheetName, ends, x.EndsAt.In(createdAt.Location()))
			xlsx.SetCellStyle(sheetName, ends, ends, dateStyle)
			xlsx.SetCellValue(sheetName, excelPos(5, row), *x.DurationSeconds())
		}
	}

	err = xlsx.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return err
	}

	xlsx.SetColWidth(sheetName, "A", "A", 38)
	xlsx.SetColWidth(sheetName, "B", "B", 30)
	xlsx.SetColWidth(sheetName, "C", "C", 16)
	xlsx.SetColWidth(sheetName, "D", "E", 20)

	if err := xlsx.AutoFilter(sheetName, "A1:F1", nil); err != nil {
		return err
	}

	return xlsx.Write(w)
}
