package sniperz

import (
	"strings"
	"text/template"

	"github.com/Xaypanya/sniperz/util"
)

// TargetNamer derives a destination filename for a record.
type TargetNamer interface {
	TargetFilename(record *VideoRecord) (string, error)
}

type targetNamer struct {
	tmpl *template.Template
}

// NewTargetNamer returns the default filename scheme, "{Title} [{ID}].mp4",
// with filesystem-hostile characters stripped from the title.
func NewTargetNamer() TargetNamer {
	return &targetNamer{
		tmpl: template.Must(template.New("target_file").Parse("{{.Title}} [{{.ID}}].{{.Ext}}")),
	}
}

type targetNameArgs struct {
	Title string
	ID    VideoID
	Ext   string
}

func (n *targetNamer) TargetFilename(record *VideoRecord) (string, error) {
	title := util.SanitizeFilename(record.Title)
	if title == "" {
		title = "untitled"
	}
	args := targetNameArgs{
		Title: title,
		ID:    record.ID,
		Ext:   "mp4",
	}
	builder := strings.Builder{}
	if err := n.tmpl.Execute(&builder, &args); err != nil {
		return "", err
	}
	return builder.String(), nil
}
