package transcript

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerStudent  Speaker = "student"
	SpeakerPatient  Speaker = "patient"
	SpeakerExaminer Speaker = "examiner"
	SpeakerUnknown  Speaker = "unknown"
)

// Utterance is a single timed line of speech.
type Utterance struct {
	Speaker        Speaker `json:"speaker"`
	Text           string  `json:"text"`
	TimestampStart string  `json:"timestamp_start"` // MM:SS or HH:MM:SS
	TimestampEnd   string  `json:"timestamp_end"`
}

// DurationSeconds returns the utterance duration, or 0 on malformed timestamps.
func (u Utterance) DurationSeconds() float64 {
	start, err1 := ToSeconds(u.TimestampStart)
	end, err2 := ToSeconds(u.TimestampEnd)
	if err1 != nil || err2 != nil {
		return 0
	}
	return end - start
}

// Section is a contiguous run of utterances under one clinical label
// (CC, HPI, ROS, PMH, SH, FH, Summary).
type Section struct {
	Label          string      `json:"label"`
	Utterances     []Utterance `json:"utterances"`
	TimestampStart string      `json:"timestamp_start"`
	TimestampEnd   string      `json:"timestamp_end"`
}

// StudentUtterances returns only the student's utterances in this section.
func (s Section) StudentUtterances() []Utterance {
	var out []Utterance
	for _, u := range s.Utterances {
		if u.Speaker == SpeakerStudent {
			out = append(out, u)
		}
	}
	return out
}

// Text returns the concatenated text of all utterances in the section.
func (s Section) Text() string {
	var b []byte
	for i, u := range s.Utterances {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, u.Text...)
	}
	return string(b)
}

// Segmented is a transcript already split into sections, the form the
// evaluation core consumes. It is treated as immutable input.
type Segmented struct {
	TranscriptID  string    `json:"transcript_id"`
	Sections      []Section `json:"sections"`
	DetectedOrder []string  `json:"detected_order"`
}

// Section returns the section with the given label, or nil.
func (t *Segmented) Section(label string) *Section {
	for i := range t.Sections {
		if t.Sections[i].Label == label {
			return &t.Sections[i]
		}
	}
	return nil
}

// HasSection reports whether a section with the label exists.
func (t *Segmented) HasSection(label string) bool {
	return t.Section(label) != nil
}

// StudentUtterances returns all student utterances across sections, in
// encounter order.
func (t *Segmented) StudentUtterances() []Utterance {
	var out []Utterance
	for _, sec := range t.Sections {
		for _, u := range sec.Utterances {
			if u.Speaker == SpeakerStudent {
				out = append(out, u)
			}
		}
	}
	return out
}
