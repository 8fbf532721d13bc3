package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/example/meeting-room-reservation/internal/application"
)

// Message is a rendered notification mail.
type Message struct {
	Subject string
	Body    string
}

var actionLabels = map[application.NotificationAction]string{
	application.ActionCreated: "新規予約",
	application.ActionUpdated: "予約変更",
	application.ActionDeleted: "予約削除",
}

var actionMarks = map[application.NotificationAction]string{
	application.ActionCreated: "✅",
	application.ActionUpdated: "🔄",
	application.ActionDeleted: "🗑️",
}

var weekdayNames = [...]string{"日", "月", "火", "水", "木", "金", "土"}

const fallbackLabel = "予約通知"

var bodyTemplate = template.Must(template.New("body").Parse(`{{.Mark}} {{.Label}}

日時　　： {{.Date}} {{.StartTime}}～{{.EndTime}}
タイトル： {{.Title}}
予約者　： {{.UserName}} ({{.Department}})
詳細　　： {{.Description}}

会議室予約システム
{{- if .AppURL}}
{{.AppURL}}
{{- end}}
`))

// ActionLabel returns the Japanese label used in subjects and bodies.
func ActionLabel(action application.NotificationAction) string {
	if label, ok := actionLabels[action]; ok {
		return label
	}
	return fallbackLabel
}

// FormatDate renders a date as 2025年7月11日（金）.
func FormatDate(date time.Time) string {
	return fmt.Sprintf("%d年%d月%d日（%s）", date.Year(), int(date.Month()), date.Day(), weekdayNames[date.Weekday()])
}

// Subject renders [label] 2025年7月11日（金）12:45～13:45. Hours are not
// zero padded.
func Subject(e Event) string {
	r := e.Reservation
	return fmt.Sprintf("[%s] %s%s～%s",
		ActionLabel(e.Action),
		FormatDate(snapshotDate(r)),
		clockNoPad(r.Start),
		clockNoPad(r.End),
	)
}

func clockNoPad(t time.Time) string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}

func snapshotDate(r ReservationSnapshot) time.Time {
	if d, err := time.ParseInLocation(time.DateOnly, r.Date, r.Start.Location()); err == nil {
		return d
	}
	return r.Start
}

// Render builds the subject and plain-text body for e.
func Render(e Event, appURL string) (Message, error) {
	r := e.Reservation
	department := strings.TrimSpace(r.DepartmentName)
	if department == "" {
		department = "未設定"
	}
	mark, ok := actionMarks[e.Action]
	if !ok {
		mark = "📅"
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, map[string]string{
		"Mark":        mark,
		"Label":       ActionLabel(e.Action),
		"Date":        FormatDate(snapshotDate(r)),
		"StartTime":   r.Start.Format("15:04"),
		"EndTime":     r.End.Format("15:04"),
		"Title":       strings.TrimSpace(r.Title),
		"UserName":    strings.TrimSpace(r.UserName),
		"Department":  department,
		"Description": strings.TrimSpace(r.Description),
		"AppURL":      strings.TrimSpace(appURL),
	})
	if err != nil {
		return Message{}, fmt.Errorf("notify: render body: %w", err)
	}
	return Message{Subject: Subject(e), Body: buf.String()}, nil
}
