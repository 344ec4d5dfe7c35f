package extract

import (
	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// Collection date event roles.
const (
	EventSingle = "single"
	EventStart  = "start"
	EventEnd    = "end"
)

type datedEvent struct {
	event    string
	date     string
	language string
}

type dateRole struct {
	element string
	event   string
}

var lifecycleDateRoles = []dateRole{
	{element: "SimpleDate", event: EventSingle},
	{element: "StartDate", event: EventStart},
	{element: "EndDate", event: EventEnd},
}

// CollectionPeriod derives the language-independent collection dates from
// DDI-Codebook collDate elements. A single date takes precedence over a
// start date for both the start date and the year; the end date comes from
// the first end event. Each part is derived independently, so an
// unparseable year leaves the dates intact.
func CollectionPeriod(nodes []*xmlquery.Node, report Reporter) cmm.DataCollectionPeriod {
	var events []datedEvent
	for _, node := range nodes {
		date := cleanXMLText(Attr(node, "date"))
		if date == "" {
			continue
		}
		events = append(events, datedEvent{event: Attr(node, "event"), date: date, language: Lang(node)})
	}
	return periodFromEvents(events, report)
}

// LifecycleCollectionPeriod derives the collection dates from DDI-Lifecycle
// DataCollectionDate elements with SimpleDate, StartDate and EndDate
// children.
func LifecycleCollectionPeriod(nodes []*xmlquery.Node, report Reporter) cmm.DataCollectionPeriod {
	var events []datedEvent
	for _, node := range nodes {
		for _, role := range lifecycleDateRoles {
			if date := Text(Child(node, role.element)); date != "" {
				events = append(events, datedEvent{event: role.event, date: date, language: Lang(node)})
			}
		}
	}
	return periodFromEvents(events, report)
}

func periodFromEvents(events []datedEvent, report Reporter) cmm.DataCollectionPeriod {
	single := firstEvent(events, EventSingle)
	start := firstEvent(events, EventStart)
	end := firstEvent(events, EventEnd)

	var period cmm.DataCollectionPeriod
	begin := single
	if begin == nil {
		begin = start
	}
	if begin != nil {
		period.StartDate = begin.date
		year, err := ParseYear(begin.date)
		if err != nil {
			report.Report(begin.language, "collection year: %v", err)
		} else {
			period.Year = year
		}
	}
	if end != nil {
		period.EndDate = end.date
	}
	return period
}

func firstEvent(events []datedEvent, event string) *datedEvent {
	for i := range events {
		if events[i].event == event {
			return &events[i]
		}
	}
	return nil
}
