package export

import (
	"github.com/rivo/uniseg"
	"github.com/xuri/excelize/v2"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
)

const (
	SheetName = "Contatos"

	minNameWidth  = 20
	phoneWidth    = 18
	minGroupWidth = 10
	adminWidth    = 10
	maxColWidth   = 255
)

var xlsxHeader = []interface{}{"Nome", "Telefone", "Grupo", "Admin"}

// AdminLabel distinguishes the group owner from ordinary admins. The CSV
// variant intentionally does not.
func AdminLabel(m directory.Member) string {
	switch {
	case m.IsSuperAdmin:
		return "Criador"
	case m.IsAdmin:
		return "Sim"
	default:
		return "Não"
	}
}

// ColumnWidths returns widths for Nome, Telefone, Grupo and Admin, measured in
// terminal cells so wide glyphs are not truncated.
func ColumnWidths(groupName string, members []directory.Member) [4]float64 {
	name := minNameWidth
	for _, m := range members {
		if w := uniseg.StringWidth(m.Name) + 2; w > name {
			name = w
		}
	}
	group := uniseg.StringWidth(groupName) + 2
	if group < minGroupWidth {
		group = minGroupWidth
	}
	return [4]float64{
		float64(min(name, maxColWidth)),
		phoneWidth,
		float64(min(group, maxColWidth)),
		adminWidth,
	}
}

func renderXLSX(groupName string, members []directory.Member) ([]byte, error) {
	if groupName == "" {
		groupName = directory.DefaultGroupName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeader); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "D1", headerStyle); err != nil {
		return nil, err
	}

	for i, m := range members {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{m.Name, m.PhoneFormatted, groupName, AdminLabel(m)}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	widths := ColumnWidths(groupName, members)
	for i, col := range []string{"A", "B", "C", "D"} {
		if err := f.SetColWidth(SheetName, col, col, widths[i]); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
