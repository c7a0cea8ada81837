package transcript

import (
	"regexp"
	"strings"
)

// Parser turns raw transcript text into utterances. Expected line shape:
//
//	[00:05] Student: Tell me what brings you in today?
//	[00:08] Patient: I have sudden weakness on my left side.
//
// Lines without a timestamp inherit the last seen one.
type Parser struct {
	speakerRe   *regexp.Regexp
	timestampRe *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		speakerRe:   regexp.MustCompile(`(?i)^(student|patient|examiner|s|p):\s*`),
		timestampRe: regexp.MustCompile(`[\[(](\d{1,2}:\d{2}(?::\d{2})?)[\])]`),
	}
}

// Parse splits raw text into utterances in order of appearance.
func (p *Parser) Parse(raw string) []Utterance {
	var utterances []Utterance
	current := "00:00"

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := p.timestampRe.FindStringSubmatch(line); m != nil {
			// Out-of-range stamps like [00:99] inherit the previous timestamp.
			if ValidTimestamp(m[1]) {
				current = m[1]
			}
			line = strings.TrimSpace(p.timestampRe.ReplaceAllString(line, ""))
		}

		speaker := SpeakerUnknown
		text := line
		if m := p.speakerRe.FindString(line); m != "" {
			switch strings.ToLower(strings.TrimRight(strings.TrimSpace(m), ":")) {
			case "student", "s":
				speaker = SpeakerStudent
			case "patient", "p":
				speaker = SpeakerPatient
			case "examiner":
				speaker = SpeakerExaminer
			}
			text = strings.TrimSpace(line[len(m):])
		}

		if text == "" {
			continue
		}
		utterances = append(utterances, Utterance{
			Speaker:        speaker,
			Text:           text,
			TimestampStart: current,
			TimestampEnd:   current,
		})
	}
	return utterances
}

// sectionKeywords drive boundary detection. Order matters: first hit wins.
var sectionKeywords = []struct {
	label    string
	keywords []string
}{
	{"CC", []string{
		"what brings you in", "chief complaint", "what's going on",
		"what happened", "tell me about",
	}},
	{"HPI", []string{
		"when did", "how long", "describe the", "tell me more about",
		"history of present illness",
	}},
	{"ROS", []string{
		"review of systems", "any other symptoms", "anything else bothering",
		"any fever", "any headache", "any chest pain", "any shortness of breath",
	}},
	{"PMH", []string{
		"past medical history", "any medical conditions", "any chronic conditions",
		"do you have diabetes", "do you have hypertension",
	}},
	{"SH", []string{
		"social history", "do you smoke", "do you drink",
		"what do you do for work", "who do you live with",
	}},
	{"FH", []string{
		"family history", "any family members", "does anyone in your family",
		"family medical history",
	}},
	{"Summary", []string{
		"so to summarize", "in summary", "let me summarize", "to recap",
		"so this is a",
	}},
}

func detectSection(u Utterance) string {
	text := strings.ToLower(u.Text)
	for _, sk := range sectionKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(text, kw) {
				return sk.label
			}
		}
	}
	return ""
}

// Segment groups utterances into sections. Only student utterances open a new
// section; patient and examiner lines stay with the section in progress.
func Segment(transcriptID string, utterances []Utterance) *Segmented {
	seg := &Segmented{TranscriptID: transcriptID}

	var label string
	var buf []Utterance
	var start string

	flush := func() {
		if label == "" || len(buf) == 0 {
			return
		}
		seg.Sections = append(seg.Sections, Section{
			Label:          label,
			Utterances:     buf,
			TimestampStart: start,
			TimestampEnd:   buf[len(buf)-1].TimestampEnd,
		})
		seg.DetectedOrder = append(seg.DetectedOrder, label)
	}

	for _, u := range utterances {
		if u.Speaker == SpeakerStudent {
			if detected := detectSection(u); detected != "" && detected != label {
				flush()
				label = detected
				buf = []Utterance{u}
				start = u.TimestampStart
				continue
			}
		}
		if label != "" {
			buf = append(buf, u)
		}
	}
	flush()
	return seg
}

// Process parses and segments raw transcript text in one step.
func Process(transcriptID, raw string) *Segmented {
	return Segment(transcriptID, NewParser().Parse(raw))
}
