package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

const (
	dayBlockSelector = "div.col-md-6"
	minLessonCells   = 3
)

var (
	subjectTypePattern = regexp.MustCompile(`^(.+?)\s*\((.+?)\)`)
	timeRangePattern   = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})\s*-+\s*(\d{1,2})[:.](\d{2})$`)
	remoteMarkers      = []string{"дистанційно", "онлайн", "online"}
)

type lessonField int

const (
	fieldRoom lessonField = iota
	fieldTeacher
	fieldGroup
)

// lineMatcher classifies one detail line into a record field.
type lineMatcher struct {
	field   lessonField
	pattern *regexp.Regexp
}

// detailMatchers are tried in order; the first match decides the field of a line.
var detailMatchers = []lineMatcher{
	{field: fieldRoom, pattern: regexp.MustCompile(`^\d{2,4}$`)},
	{field: fieldTeacher, pattern: regexp.MustCompile(`(?i)(викладач|доцент|професор|асистент|ст\. викладач|зав\. кафедрою)`)},
	{field: fieldGroup, pattern: regexp.MustCompile(`^(Потік|Група|Збірна група)`)},
}

type extractObserver interface {
	ObserveExtractedRecords(count int)
}

// RecordExtractor turns timetable markup into lesson records. Malformed blocks and
// rows are skipped, so extraction itself never fails.
type RecordExtractor struct {
	daySelector string
	metrics     extractObserver
	logger      *zap.Logger
}

// NewRecordExtractor constructs an extractor. daySelector matches one day block and
// should be the same selector the fetcher waits for; empty means div.col-md-6.
func NewRecordExtractor(daySelector string, metrics extractObserver, logger *zap.Logger) *RecordExtractor {
	if daySelector == "" {
		daySelector = dayBlockSelector
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordExtractor{daySelector: daySelector, metrics: metrics, logger: logger}
}

// Extract returns the lessons in document order.
func (e *RecordExtractor) Extract(markup string) []models.LessonRecord {
	records := make([]models.LessonRecord, 0)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Warn("timetable markup could not be parsed", zap.Error(err))
		return records
	}

	doc.Find(e.daySelector).Each(func(_ int, block *goquery.Selection) {
		date, ok := blockDate(block)
		if !ok {
			return
		}
		table := block.Find("table.table").First()
		if table.Length() == 0 {
			e.logger.Debug("day block without lesson table", zap.String("date", date))
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if record, ok := extractRow(date, row); ok {
				records = append(records, record)
			}
		})
	})

	if e.metrics != nil {
		e.metrics.ObserveExtractedRecords(len(records))
	}
	return records
}

func blockDate(block *goquery.Selection) (string, bool) {
	header := block.Find("h4").First()
	if header.Length() == 0 {
		return "", false
	}
	fields := strings.Fields(header.Text())
	if len(fields) == 0 {
		return "", false
	}
	day, err := time.Parse(models.SiteDateLayout, fields[0])
	if err != nil {
		return "", false
	}
	return day.Format(models.DateLayout), true
}

func extractRow(date string, row *goquery.Selection) (models.LessonRecord, bool) {
	cells := row.Find("td")
	if cells.Length() < minLessonCells {
		return models.LessonRecord{}, false
	}

	lines := textLines(cells.Eq(2))
	if len(lines) == 0 {
		return models.LessonRecord{}, false
	}

	record := models.LessonRecord{
		Date:         date,
		LessonNumber: strings.TrimSpace(cells.Eq(0).Text()),
		Group:        models.WholeGroup,
	}
	record.Time, record.Start, record.End = parseLessonTime(strings.Join(textLines(cells.Eq(1)), "-"))

	subjectLine := lines[len(lines)-1]
	if m := subjectTypePattern.FindStringSubmatch(subjectLine); m != nil {
		record.Subject = strings.TrimSpace(m[1])
		record.LessonType = strings.TrimSpace(m[2])
	} else {
		record.Subject = subjectLine
	}

	for _, line := range lines[:len(lines)-1] {
		classifyLine(&record, line)
		if isRemoteLine(line) {
			record.Remote = true
		}
	}
	return record, true
}

func classifyLine(record *models.LessonRecord, line string) {
	for _, matcher := range detailMatchers {
		if !matcher.pattern.MatchString(line) {
			continue
		}
		switch matcher.field {
		case fieldRoom:
			record.Room = line
		case fieldTeacher:
			record.Teacher = line
		case fieldGroup:
			record.Group = line
		}
		return
	}
}

func isRemoteLine(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range remoteMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// parseLessonTime normalizes "8:00-9:20" style ranges. Unrecognized text is kept raw
// with empty start and end.
func parseLessonTime(raw string) (string, string, string) {
	raw = strings.TrimSpace(raw)
	m := timeRangePattern.FindStringSubmatch(raw)
	if m == nil {
		return raw, "", ""
	}
	start, okStart := clock(m[1], m[2])
	end, okEnd := clock(m[3], m[4])
	if !okStart || !okEnd {
		return raw, "", ""
	}
	return start + "-" + end, start, end
}

func clock(hours, minutes string) (string, bool) {
	if len(hours) == 1 {
		hours = "0" + hours
	}
	t, err := time.Parse(models.ClockLayout, hours+":"+minutes)
	if err != nil {
		return "", false
	}
	return t.Format(models.ClockLayout), true
}

// textLines collects every descendant text node of the selection as trimmed, non-empty lines.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, part := range strings.Split(n.Data, "\n") {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					lines = append(lines, trimmed)
				}
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return lines
}
