// Package email renders operational notices shared by the email senders.
package email

import (
	"fmt"
	"html"
	"strings"

	"borderdesk/internal/port"
)

// RejectionSubject returns the subject line for a rejected filing.
func RejectionSubject(n port.RejectionNotice) string {
	if n.ShipmentControlNumber == "" {
		return "BorderConnect rejected manifest " + n.ManifestID
	}
	return "BorderConnect rejected shipment " + n.ShipmentControlNumber
}

// RejectionText renders the plain-text body.
func RejectionText(n port.RejectionNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The filing for manifest %s was rejected.\n\n", n.ManifestID)
	fmt.Fprintf(&b, "Trip: %s\nShipment: %s\nSend ID: %s\n", n.TripNumber, n.ShipmentControlNumber, n.SendID)
	if len(n.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, fe := range n.Errors {
			fmt.Fprintf(&b, "  - %s\n", fe.String())
		}
	}
	b.WriteString("\nCorrect the manifest and submit again.\n")
	return b.String()
}

// RejectionHTML renders the HTML body. Every upstream value is escaped.
func RejectionHTML(n port.RejectionNotice) string {
	var items strings.Builder
	for _, fe := range n.Errors {
		fmt.Fprintf(&items, "    <li>%s</li>\n", html.EscapeString(fe.String()))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #b91c1c;">Filing rejected</h2>
  <p>The filing for manifest <code>%s</code> was rejected by BorderConnect.</p>
  <table style="border-collapse: collapse;">
    <tr><td style="padding-right: 12px; color: #666;">Trip</td><td>%s</td></tr>
    <tr><td style="padding-right: 12px; color: #666;">Shipment</td><td>%s</td></tr>
    <tr><td style="padding-right: 12px; color: #666;">Send ID</td><td>%s</td></tr>
  </table>
  <ul>
%s  </ul>
  <p>Correct the manifest and submit again.</p>
</body>
</html>`,
		html.EscapeString(n.ManifestID),
		html.EscapeString(n.TripNumber),
		html.EscapeString(n.ShipmentControlNumber),
		html.EscapeString(n.SendID),
		items.String())
}
