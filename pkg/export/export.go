// Package export renders a group's membership as a downloadable CSV or XLSX
// file.
package export

import (
	"errors"
	"strings"
	"time"

	"github.com/forPelevin/gomoji"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
)

type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
)

var ErrUnknownKind = errors.New("unknown export format")

// ParseKind maps a user supplied format name onto a Kind.
func ParseKind(raw string, fallback Kind) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, nil
	case "csv":
		return KindCSV, nil
	case "xlsx", "excel", "spreadsheet":
		return KindXLSX, nil
	default:
		return "", ErrUnknownKind
	}
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Options struct {
	// StripEmoji removes emoji from member names before rendering.
	StripEmoji bool
	// Now stamps the filename; defaults to time.Now.
	Now func() time.Time
}

// Format renders members of the named group in the requested format.
func Format(groupName string, members []directory.Member, kind Kind, opts Options) (*File, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	if opts.StripEmoji {
		members = withoutEmoji(members)
	}

	switch kind {
	case KindCSV:
		return &File{
			Name:        CSVFilename(groupName, now()),
			ContentType: "text/csv; charset=utf-8",
			Data:        renderCSV(groupName, members),
		}, nil
	case KindXLSX:
		data, err := renderXLSX(groupName, members)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        XLSXFilename(groupName, now()),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, ErrUnknownKind
	}
}

func withoutEmoji(members []directory.Member) []directory.Member {
	out := make([]directory.Member, len(members))
	for i, m := range members {
		m.Name = strings.Join(strings.Fields(gomoji.RemoveEmojis(m.Name)), " ")
		out[i] = m
	}
	return out
}
