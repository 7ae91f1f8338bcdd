package summary

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"scribe/errs"
)

//go:embed preambles/*.md
var preambles embed.FS

type MeetingType struct {
	Name   string
	Suffix string // output file suffix, without extension
	Daily  bool   // uses the short summary prompt
}

var meetingTypes = map[string]MeetingType{
	"daily":               {"daily", "daily_summary", true},
	"internal_meeting":    {"internal_meeting", "internal_meeting_minutes", false},
	"external_meeting":    {"external_meeting", "external_meeting_minutes", false},
	"kickoff":             {"kickoff", "kickoff_minutes", false},
	"sprint_planning":     {"sprint_planning", "sprint_planning_minutes", false},
	"retrospective":       {"retrospective", "retrospective_minutes", false},
	"incident_postmortem": {"incident_postmortem", "incident_postmortem", false},
	"one_on_one":          {"one_on_one", "one_on_one_summary", false},
	"training":            {"training", "training_summary", false},
	"other":               {"other", "other_minutes", false},
}

var aliases = map[string]string{
	"standup":      "daily",
	"meeting":      "internal_meeting",
	"internal":     "internal_meeting",
	"external":     "external_meeting",
	"client":       "external_meeting",
	"planning":     "sprint_planning",
	"retro":        "retrospective",
	"postmortem":   "incident_postmortem",
	"incident":     "incident_postmortem",
	"1on1":         "one_on_one",
	"course":       "training",
	"capacitation": "training",
	"class":        "training",
	"generic":      "other",

	// labels used by older session folders
	"reuniao_interna":      "internal_meeting",
	"reuniao_externa":      "external_meeting",
	"planejamento_sprint":  "sprint_planning",
	"retrospectiva":        "retrospective",
	"incidente_postmortem": "incident_postmortem",
	"treinamento":          "training",
	"curso":                "training",
	"capacitacao":          "training",
	"outro":                "other",
}

// Lookup resolves a meeting type name or alias. Matching ignores case,
// surrounding space and the choice of '-' or '_'.
func Lookup(name string) (MeetingType, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if a, ok := aliases[key]; ok {
		key = a
	}
	mt, ok := meetingTypes[key]
	if !ok {
		return MeetingType{}, errs.E("summary", fmt.Errorf("%w: %q (known: %s)",
			errs.ErrUnknownMeetingType, name, strings.Join(Names(), ", ")))
	}
	return mt, nil
}

func Names() []string {
	names := make([]string, 0, len(meetingTypes))
	for n := range meetingTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preamble returns the instruction template for the type. It is read from
// the binary and never written to disk.
func (m MeetingType) Preamble() string {
	data, err := preambles.ReadFile("preambles/" + m.Name + ".md")
	if err != nil {
		// every registered type ships a preamble
		panic(fmt.Sprintf("summary: no preamble for %s", m.Name))
	}
	return strings.TrimSpace(string(data))
}
