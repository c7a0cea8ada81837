package transcript_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscegrade/oscegrade/internal/transcript"
)

func TestParseSpeakersAndTimestamps(t *testing.T) {
	raw := `
[00:05] Student: Good morning, what brings you in today?
[00:12] Patient: My chest hurts.
[00:20] Examiner: Two minutes remaining.
`
	utterances := transcript.NewParser().Parse(raw)
	require.Len(t, utterances, 3)

	assert.Equal(t, transcript.SpeakerStudent, utterances[0].Speaker)
	assert.Equal(t, "Good morning, what brings you in today?", utterances[0].Text)
	assert.Equal(t, "00:05", utterances[0].TimestampStart)

	assert.Equal(t, transcript.SpeakerPatient, utterances[1].Speaker)
	assert.Equal(t, transcript.SpeakerExaminer, utterances[2].Speaker)
}

func TestParseShortSpeakerTags(t *testing.T) {
	raw := `
[00:05] S: When did it start?
[00:10] P: Yesterday.
`
	utterances := transcript.NewParser().Parse(raw)
	require.Len(t, utterances, 2)
	assert.Equal(t, transcript.SpeakerStudent, utterances[0].Speaker)
	assert.Equal(t, transcript.SpeakerPatient, utterances[1].Speaker)
}

func TestParseTimestampInheritance(t *testing.T) {
	raw := `
[01:30] Student: Any chest pain?
Patient: A little, yes.
`
	utterances := transcript.NewParser().Parse(raw)
	require.Len(t, utterances, 2)
	assert.Equal(t, "01:30", utterances[1].TimestampStart, "untimed lines inherit the last timestamp")
}

func TestParseOutOfRangeTimestampInherits(t *testing.T) {
	raw := `
[01:30] Student: Any chest pain?
[00:99] Patient: A little, yes.
`
	utterances := transcript.NewParser().Parse(raw)
	require.Len(t, utterances, 2)
	assert.Equal(t, "01:30", utterances[1].TimestampStart, "out-of-range stamps keep the last valid timestamp")
}

func TestParseUnknownSpeaker(t *testing.T) {
	utterances := transcript.NewParser().Parse("[00:05] inaudible muttering")
	require.Len(t, utterances, 1)
	assert.Equal(t, transcript.SpeakerUnknown, utterances[0].Speaker)
}

func TestParseSkipsBlankLines(t *testing.T) {
	raw := "\n\n[00:05] Student: Hello.\n\n\n[00:10] Patient: Hi.\n\n"
	assert.Len(t, transcript.NewParser().Parse(raw), 2)
}

func TestParseParenthesizedTimestamps(t *testing.T) {
	utterances := transcript.NewParser().Parse("(02:15) Student: Do you smoke?")
	require.Len(t, utterances, 1)
	assert.Equal(t, "02:15", utterances[0].TimestampStart)
}

func TestSegmentDetectsSectionsInOrder(t *testing.T) {
	raw := `
[00:05] Student: What brings you in today?
[00:12] Patient: Sudden weakness on my left side.
[00:30] Student: When did the weakness start?
[00:36] Patient: Two hours ago.
[01:10] Student: Any fever or headache?
[01:40] Student: Do you have any medical conditions?
[02:10] Student: Do you smoke?
[02:40] Student: Any family history of stroke?
[03:10] Student: So to summarize, an acute focal deficit concerning for stroke.
`
	seg := transcript.Process("t1", raw)
	assert.Equal(t, []string{"CC", "HPI", "ROS", "PMH", "SH", "FH", "Summary"}, seg.DetectedOrder)

	cc := seg.Section("CC")
	require.NotNil(t, cc)
	assert.Equal(t, "00:05", cc.TimestampStart)
	require.Len(t, cc.Utterances, 2, "patient reply stays with the open section")
	assert.Equal(t, transcript.SpeakerPatient, cc.Utterances[1].Speaker)
}

func TestSegmentOnlyStudentOpensSections(t *testing.T) {
	raw := `
[00:05] Student: What brings you in today?
[00:12] Patient: Well, my family history is complicated.
[00:30] Patient: Do you smoke? No wait, you asked me that.
`
	seg := transcript.Process("t1", raw)
	assert.Equal(t, []string{"CC"}, seg.DetectedOrder, "patient keywords must not open sections")
}

func TestSegmentPreambleBeforeFirstSectionDropped(t *testing.T) {
	raw := `
[00:01] Student: Hello, I am a third year medical student.
[00:05] Student: What brings you in today?
`
	seg := transcript.Process("t1", raw)
	require.Equal(t, []string{"CC"}, seg.DetectedOrder)
	assert.Len(t, seg.Section("CC").Utterances, 1)
}

func TestSegmentedStudentUtterances(t *testing.T) {
	raw := `
[00:05] Student: What brings you in today?
[00:12] Patient: Weakness.
[00:30] Student: When did the weakness start?
`
	seg := transcript.Process("t1", raw)
	students := seg.StudentUtterances()
	require.Len(t, students, 2)
	for _, u := range students {
		assert.Equal(t, transcript.SpeakerStudent, u.Speaker)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	seg := transcript.Process("t1", "")
	assert.Empty(t, seg.Sections)
	assert.Empty(t, seg.DetectedOrder)
	assert.False(t, seg.HasSection("CC"))
}
