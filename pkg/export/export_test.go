package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
)

var fixedNow = func() time.Time { return time.UnixMilli(1700000000123) }

func TestCSVRowNeutralizesFreeText(t *testing.T) {
	members := []directory.Member{
		{Name: "Ana, Silva", PhoneFormatted: "+5511999", IsAdmin: true},
	}

	file, err := Format("Time A", members, KindCSV, Options{Now: fixedNow})
	require.NoError(t, err)

	want := "\uFEFF" + "Nome,Telefone,Grupo,Admin\n" + `"Ana Silva","+5511999","Time A","Sim"`
	assert.Equal(t, want, string(file.Data))
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, "contatos_Time_A_1700000000123.csv", file.Name)
}

func TestCSVOwnerWithoutAdminFlagIsNotAdmin(t *testing.T) {
	members := []directory.Member{
		{Name: `Dona "Chefe"`, PhoneFormatted: "+551", IsSuperAdmin: true},
		{Name: "", PhoneFormatted: "+552"},
	}

	file, err := Format(`Grupo "X", oficial`, members, KindCSV, Options{Now: fixedNow})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimPrefix(string(file.Data), "\uFEFF"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Dona Chefe","+551","Grupo X oficial","Não"`, lines[1])
	assert.Equal(t, `"","+552","Grupo X oficial","Não"`, lines[2])
}

func TestFilenameSanitization(t *testing.T) {
	at := fixedNow()
	assert.Contains(t, CSVFilename("Equipe #1!", at), "Equipe_1_")
	assert.Contains(t, XLSXFilename("Equipe #1!", at), "Equipe _1")
	assert.Equal(t, "contatos_Equipe _1__1700000000123.xlsx", XLSXFilename("  Equipe #1!", at))
	assert.Equal(t, "contatos_grupo_1700000000123.csv", CSVFilename("", at))
}

func TestCSVFilenameCollapsesUnsafeRuns(t *testing.T) {
	at := fixedNow()
	assert.Equal(t, "contatos_Equipe_1__1700000000123.csv", CSVFilename("Equipe #1!", at))
	assert.Equal(t, "contatos_a_b_1700000000123.csv", CSVFilename("a -- b", at))
	assert.NotContains(t, CSVFilename("Equipe #1!", at), "Equipe__1")
}

func TestXLSXAdminLabelsAndLayout(t *testing.T) {
	members := []directory.Member{
		{Name: "Ana, Silva", PhoneFormatted: "+5511999", IsAdmin: true},
		{Name: "Dono", PhoneFormatted: "+5511000", IsAdmin: false, IsSuperAdmin: true},
		{Name: "Um nome de contato bem comprido", PhoneFormatted: "+5511888"},
	}

	file, err := Format("Time A", members, KindXLSX, Options{Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, "contatos_Time A_1700000000123.xlsx", file.Name)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	header, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, header, 4)
	assert.Equal(t, []string{"Nome", "Telefone", "Grupo", "Admin"}, header[0])
	assert.Equal(t, []string{"Ana, Silva", "+5511999", "Time A", "Sim"}, header[1])
	assert.Equal(t, "Criador", header[2][3])
	assert.Equal(t, "Não", header[3][3])

	nameWidth, err := f.GetColWidth(SheetName, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Um nome de contato bem comprido")+2), nameWidth)
	phone, err := f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(phoneWidth), phone)
	admin, err := f.GetColWidth(SheetName, "D")
	require.NoError(t, err)
	assert.Equal(t, float64(adminWidth), admin)
}

func TestColumnWidthMinimums(t *testing.T) {
	widths := ColumnWidths("Turma 2024 de Engenharia", []directory.Member{{Name: "Bo"}})
	assert.Equal(t, [4]float64{20, 18, 26, 10}, widths)

	widths = ColumnWidths("A", nil)
	assert.Equal(t, float64(minGroupWidth), widths[2])

	// East Asian wide characters take two cells each.
	widths = ColumnWidths("x", []directory.Member{{Name: "山田太郎山田太郎山田太郎"}})
	assert.Equal(t, float64(26), widths[0])
}

func TestStripEmojiOption(t *testing.T) {
	members := []directory.Member{{Name: "Ana 🎉 Silva", PhoneFormatted: "+551"}}

	file, err := Format("G", members, KindCSV, Options{StripEmoji: true, Now: fixedNow})
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), `"Ana Silva"`)
	assert.Equal(t, "Ana 🎉 Silva", members[0].Name)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("", KindXLSX)
	require.NoError(t, err)
	assert.Equal(t, KindXLSX, k)

	k, err = ParseKind("CSV", KindXLSX)
	require.NoError(t, err)
	assert.Equal(t, KindCSV, k)

	_, err = ParseKind("pdf", KindXLSX)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Format("G", nil, Kind("pdf"), Options{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}
