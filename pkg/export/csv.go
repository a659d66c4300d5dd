package export

import (
	"strings"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
)

const utf8BOM = "\uFEFF"

var csvHeader = []string{"Nome", "Telefone", "Grupo", "Admin"}

// renderCSV writes every field quoted. Commas and quotes in free text are
// neutralized instead of escaped so naive parsers can split on ",".
func renderCSV(groupName string, members []directory.Member) []byte {
	if groupName == "" {
		groupName = directory.DefaultGroupName
	}
	group := neutralize(groupName)

	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(strings.Join(csvHeader, ","))
	for _, m := range members {
		admin := "Não"
		if m.IsAdmin {
			admin = "Sim"
		}
		b.WriteByte('\n')
		writeQuoted(&b, neutralize(m.Name), m.PhoneFormatted, group, admin)
	}
	return []byte(b.String())
}

func writeQuoted(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(f)
		b.WriteByte('"')
	}
}

func neutralize(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
