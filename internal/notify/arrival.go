package notify

import (
	"fmt"
	"html"
	"time"
)

// ArrivalSubject is the subject line for host-arrival notifications.
const ArrivalSubject = "Visitor Arrival Notification"

// Arrival holds the visit context rendered into the host email.
type Arrival struct {
	VisitorName string
	Company     string
	Purpose     string
	Phone       string
	CheckInTime time.Time
}

// HTML renders the arrival notice body.
func (a Arrival) HTML() string {
	return fmt.Sprintf(`
		<h3>Visitor Checked In</h3>
		<p><strong>Name:</strong> %s</p>
		<p><strong>Company:</strong> %s</p>
		<p><strong>Purpose:</strong> %s</p>
		<p><strong>Phone:</strong> %s</p>
		<p><strong>Check-in Time:</strong> %s</p>`,
		html.EscapeString(a.VisitorName),
		html.EscapeString(a.Company),
		html.EscapeString(a.Purpose),
		html.EscapeString(a.Phone),
		a.CheckInTime.Format("02 Jan 2006 15:04 MST"))
}
