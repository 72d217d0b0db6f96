package utils

import (
	"fmt"
	"html"
	"strings"
)

// AllocationEmail carries what an occupant needs to know about their room.
type AllocationEmail struct {
	RecipientName string
	EventID       uint
	Accommodation string // "guesthouse" / "vendor"
	RoomType      string // "single" / "double"
	Status        string
	CheckIn       string
	CheckOut      string
	Roommate      string
	PortalLink    string
}

// BuildAllocationEmail renders subject, plain-text and HTML bodies.
func BuildAllocationEmail(e AllocationEmail) (subject, plainBody, htmlBody string) {
	safe := func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), "\r\n", " ")
	}

	name := safe(e.RecipientName)
	if name == "" {
		name = "participant"
	}
	link := safe(e.PortalLink)
	if link != "" && !(strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")) {
		link = "https://" + strings.TrimLeft(link, "/")
	}

	cancelled := e.Status == "cancelled"
	if cancelled {
		subject = fmt.Sprintf("Your accommodation for event #%d was cancelled", e.EventID)
	} else {
		subject = fmt.Sprintf("Your accommodation for event #%d", e.EventID)
	}

	roommateLine := ""
	if r := safe(e.Roommate); r != "" {
		roommateLine = fmt.Sprintf("You will share the room with %s.\n", r)
	}

	if cancelled {
		plainBody = fmt.Sprintf(
			"Hi %s,\n\n"+
				"Your %s room booking (%s) from %s to %s has been cancelled.\n"+
				"Contact the event organizer if this is unexpected.\n",
			name, safe(e.RoomType), safe(e.Accommodation), safe(e.CheckIn), safe(e.CheckOut),
		)
	} else {
		plainBody = fmt.Sprintf(
			"Hi %s,\n\n"+
				"You have a %s room (%s) from %s to %s.\n"+
				"%s"+
				"Booking status: %s\n",
			name, safe(e.RoomType), safe(e.Accommodation), safe(e.CheckIn), safe(e.CheckOut),
			roommateLine, safe(e.Status),
		)
	}
	if link != "" {
		plainBody += "\nDetails: " + link + "\n"
	}

	button := ""
	if link != "" {
		button = fmt.Sprintf(`<a class="btn" href="%s" target="_blank">View my booking</a>`, html.EscapeString(link))
	}
	paragraph := strings.ReplaceAll(html.EscapeString(strings.TrimSpace(plainBody)), "\n", "<br>")

	htmlBody = fmt.Sprintf(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { background:#f5f7fb; font-family:Arial, Helvetica, sans-serif; color:#222; }
.container { max-width:640px; margin:20px auto; }
.card { background:#fff; border:1px solid #e6eef6; padding:24px; border-radius:8px; }
.btn { display:inline-block; padding:12px 20px; background:#0b74ff; color:#fff; text-decoration:none; border-radius:6px; margin-top:16px; }
</style>
</head>
<body>
<div class="container">
  <div class="card">
    <p>%s</p>
    %s
  </div>
</div>
</body>
</html>`,
		html.EscapeString(subject), paragraph, button,
	)

	return subject, plainBody, htmlBody
}
