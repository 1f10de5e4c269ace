// Package notification delivers "new matches" messages off the rebuild path.
package notification

import (
	"bytes"
	"fmt"
	"html/template"

	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
)

// Subject of every match notification.
const Subject = "New Vendor Matches Found"

// DefaultRecipient receives notifications when no admin address is configured.
const DefaultRecipient = "admin@example.com"

var bodyTemplate = template.Must(template.New("matches").Parse(
	`<h2>We found {{.Count}} new vendors for your project!</h2>` +
		`{{if .Matches}}<ul>{{range .Matches}}<li>Vendor #{{.VendorID}}: score {{printf "%.2f" .Score}}</li>{{end}}</ul>{{end}}`,
))

// Message is one outbound notification.
type Message struct {
	ProjectID int64
	To        string
	Subject   string
	HTML      string
}

type bodyMatch struct {
	VendorID int64
	Score    float64
}

// NewMessage renders the notification for a project's freshly upserted matches.
func NewMessage(projectID int64, to string, matches []dommatch.Match) (Message, error) {
	items := make([]bodyMatch, len(matches))
	for i, m := range matches {
		items[i] = bodyMatch{VendorID: m.VendorID(), Score: m.Score()}
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		Count   int
		Matches []bodyMatch
	}{Count: len(matches), Matches: items})
	if err != nil {
		return Message{}, fmt.Errorf("render notification: %w", err)
	}

	return Message{ProjectID: projectID, To: to, Subject: Subject, HTML: buf.String()}, nil
}
